package device

import (
	"fmt"

	"github.com/tazlauanubianca/Crowdsensing/internal/location"
)

// scriptTask runs one assignment for its owner device.
type scriptTask struct {
	owner      *Device
	neighbours []*Device
	assignment Assignment
	locks      *location.LockTable
	done       func()
}

// Execute locks the location, aggregates the readings of the neighbours and
// the owner, and writes the result back to every one of them that covers the
// location, including those that had no value yet.
func (t *scriptTask) Execute() error {
	defer t.done()

	loc := t.assignment.Location
	t.locks.Lock(loc)
	defer t.locks.Unlock(loc)

	values := make([]float64, 0, len(t.neighbours)+1)
	for _, n := range t.neighbours {
		if n == nil {
			continue
		}
		if v, ok := n.Data(loc); ok {
			values = append(values, v)
		}
	}
	if v, ok := t.owner.Data(loc); ok {
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil
	}

	result, err := t.assignment.Script.Run(values)
	if err != nil {
		return fmt.Errorf("device %d: location %d: %w", t.owner.id, loc, err)
	}

	for _, n := range t.neighbours {
		if n != nil {
			n.SetData(loc, result)
		}
	}
	t.owner.SetData(loc, result)
	return nil
}
