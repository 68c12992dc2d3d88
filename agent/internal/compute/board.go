package compute

import "github.com/trainingpulse/trainingpulse/pkg/types"

// Display fallbacks for cards without a course or participant.
const (
	unnamedCourse      = "Sin nombre"
	unknownParticipant = "N/A"
)

// Distribution counts records per canonical status, in workflow order.
// Records with an unrecognised status are counted under "other", which is
// only present when non-zero.
func Distribution(ds *types.Dataset) []types.StatusCount {
	counts := make(map[Status]int, len(Statuses)+1)
	if ds != nil {
		for _, r := range ds.Rows {
			counts[statusOf(r)]++
		}
	}

	out := make([]types.StatusCount, 0, len(Statuses)+1)
	for _, st := range Statuses {
		out = append(out, types.StatusCount{Status: string(st), Name: st.Name(), Count: counts[st]})
	}
	if n := counts[StatusUnknown]; n > 0 {
		out = append(out, types.StatusCount{Status: "other", Name: StatusUnknown.Name(), Count: n})
	}
	return out
}

// Board groups records into one column per canonical status, keeping file
// order inside each column. Records with an unrecognised status are left out.
func Board(ds *types.Dataset) []types.BoardColumn {
	cols := make([]types.BoardColumn, len(Statuses))
	index := make(map[Status]int, len(Statuses))
	for i, st := range Statuses {
		cols[i] = types.BoardColumn{Status: string(st), Name: st.Name(), Cards: []types.Card{}}
		index[st] = i
	}
	if ds == nil {
		return cols
	}
	for _, r := range ds.Rows {
		i, ok := index[statusOf(r)]
		if !ok {
			continue
		}
		cols[i].Cards = append(cols[i].Cards, cardOf(r))
	}
	return cols
}

func cardOf(r types.Row) types.Card {
	c := types.Card{
		Course:      r.Get(ColCourse, ColCourseName),
		Participant: r.Get(ColParticipant, ColEmployee),
		Criticality: r[ColCriticality],
	}
	if c.Course == "" {
		c.Course = unnamedCourse
	}
	if c.Participant == "" {
		c.Participant = unknownParticipant
	}
	return c
}
