package scenario

// Plan orders scenarios for a run. Lanes may run concurrently with each
// other while the scenarios of one lane run in order. Exclusive scenarios
// run one at a time once every lane is done. Indexes refer to the slice
// the plan was built from.
type Plan struct {
	Lanes     [][]int
	Exclusive []int
}

// NewPlan keeps every scenario that ingests the shared input file in a
// single lane: the status store holds one record per inbox path, so two
// concurrent attempts on that path would read each other's outcome.
// Scenarios using their own file get a lane each and scenarios needing
// container control are exclusive.
func NewPlan(scenarios []Scenario) Plan {
	var (
		plan   Plan
		shared []int
	)
	for i, s := range scenarios {
		switch {
		case s.NeedsInfra:
			plan.Exclusive = append(plan.Exclusive, i)
		case s.UsesOwnFile:
			plan.Lanes = append(plan.Lanes, []int{i})
		default:
			shared = append(shared, i)
		}
	}
	if len(shared) > 0 {
		plan.Lanes = append([][]int{shared}, plan.Lanes...)
	}
	return plan
}
