package demo

import "time"

// session holds the buffers of the recording in progress.
type session struct {
	id    string
	start time.Time

	observations [][]float64
	actions      [][]float64
	robotStates  []map[string][]float64
	handPoses    []map[string][]float64
	timestamps   []float64
}

func newSession(id string, start time.Time) *session {
	return &session{
		id:           id,
		start:        start,
		observations: [][]float64{},
		actions:      [][]float64{},
		robotStates:  []map[string][]float64{},
		handPoses:    []map[string][]float64{},
		timestamps:   []float64{},
	}
}

func (s *session) add(obs, action []float64, robotState, handPose map[string][]float64, ts float64) {
	s.observations = append(s.observations, cloneVec(obs))
	s.actions = append(s.actions, cloneVec(action))
	s.robotStates = append(s.robotStates, cloneMap(robotState))
	s.handPoses = append(s.handPoses, cloneMap(handPose))
	s.timestamps = append(s.timestamps, ts)
}

func (s *session) steps() int {
	return len(s.actions)
}

// record finalizes the buffers into a Record. The session must not be used
// afterwards.
func (s *session) record(end time.Time) *Record {
	return &Record{
		Observations: s.observations,
		Actions:      s.actions,
		RobotStates:  s.robotStates,
		HandPoses:    s.handPoses,
		Timestamps:   s.timestamps,
		Metadata: Metadata{
			StartTime:       s.start,
			EndTime:         end,
			DurationSeconds: end.Sub(s.start).Seconds(),
			NumSteps:        s.steps(),
			SessionID:       s.id,
		},
	}
}

func cloneVec(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneMap(m map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = cloneVec(v)
	}
	return out
}
