package coverage

// ScoreCells evaluates a cell index for every aggregate, preserving order.
func ScoreCells(k Kind, cells []CellAggregate) ([]ScoredRecord, error) {
	if !k.Valid() {
		return nil, invalidf("coverage: invalid index kind %d", k)
	}
	if k.Definition().Subject != SubjectCell {
		return nil, invalidf("coverage: index %s does not score grid cells", k)
	}

	records := make([]ScoredRecord, len(cells))
	for i := range cells {
		c := &cells[i]
		score, flag := Evaluate(k, Inputs{Demand: c.DemandCount, Infra: c.InfraCount, NearestKM: c.NearestInfraKM})
		records[i] = ScoredRecord{Seq: i, Cell: c, Score: score, Flag: flag}
	}
	return records, nil
}

// ScoreLoads evaluates an infrastructure index for every load record.
func ScoreLoads(k Kind, loads []LoadRecord) ([]ScoredRecord, error) {
	if !k.Valid() {
		return nil, invalidf("coverage: invalid index kind %d", k)
	}
	if k.Definition().Subject != SubjectInfrastructure {
		return nil, invalidf("coverage: index %s does not score infrastructure points", k)
	}

	records := make([]ScoredRecord, len(loads))
	for i := range loads {
		l := &loads[i]
		score, flag := Evaluate(k, Inputs{Dependents: l.Dependents})
		records[i] = ScoredRecord{Seq: i, Load: l, Score: score, Flag: flag}
	}
	return records, nil
}
