package bridge

// journal collects undo steps for one entry point. revert runs them newest
// first; commit forgets them.
type journal struct {
	undo []func()
}

func (j *journal) append(f func()) {
	j.undo = append(j.undo, f)
}

func (j *journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// begin opens a journal whose first step restores the custody ledger.
func (e *Engine) begin() *journal {
	j := &journal{}
	snap := e.ledger.Snapshot()
	j.append(func() { e.ledger.RevertToSnapshot(snap) })
	return j
}

// finish reverts on error. On success it commits and saves the ledger and
// the registry, whose allowances settlement may have spent.
func (e *Engine) finish(j *journal, err error) {
	if err != nil {
		j.revert()
		e.ledger.Commit()
		return
	}
	e.ledger.Commit()
	e.saveBalances()
	e.persist()
}
