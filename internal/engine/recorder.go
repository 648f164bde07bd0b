package engine

import (
	"time"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Recorder receives cycle measurements. A nil Recorder on Engine records
// nothing.
type Recorder interface {
	Decision(action model.Action)
	Order(side model.Side, ok bool)
	Cycle(elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Decision(model.Action)  {}
func (nopRecorder) Order(model.Side, bool) {}
func (nopRecorder) Cycle(time.Duration)    {}
