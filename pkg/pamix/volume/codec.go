package volume

// DefaultStepDB is the calibrated loudness of one step. Converted to the
// native encoding it moves the rendered percentage by just under one point,
// so stepping never skips a percentage on its way to a target.
const DefaultStepDB = -120.0

// Codec moves channel volumes in fixed native increments.
type Codec struct {
	Step Volume
}

// StepFromDB converts a step expressed in decibels into native units.
func StepFromDB(db float64) Volume {
	return FromDB(db)
}

// NewCodec returns a codec stepping by the given decibel amount.
func NewCodec(stepDB float64) Codec {
	return Codec{Step: StepFromDB(stepDB)}
}

// DefaultCodec returns a codec using DefaultStepDB.
func DefaultCodec() Codec {
	return NewCodec(DefaultStepDB)
}

// IncreaseByOneStep raises every channel by one step.
func (c Codec) IncreaseByOneStep(cv ChannelVolumes) {
	cv.Increase(c.Step)
}

// DecreaseByOneStep lowers every channel by one step.
func (c Codec) DecreaseByOneStep(cv ChannelVolumes) {
	cv.Decrease(c.Step)
}
