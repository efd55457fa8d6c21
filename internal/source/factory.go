package source

// SyntheticAudioFactory constructs SyntheticAudioSource instances. Two
// factories Describe each other when they'd generate the same tone,
// matching the pipeline's hot-swap idempotency rule (spec §4.8): calling
// set_audio_source again with an equivalent factory is a no-op.
type SyntheticAudioFactory struct {
	ToneHz float64
}

func (f SyntheticAudioFactory) New() (Source, error) {
	return NewSyntheticAudioSource(f.ToneHz), nil
}

func (f SyntheticAudioFactory) Describes(other Factory) bool {
	o, ok := other.(SyntheticAudioFactory)
	return ok && o.ToneHz == f.ToneHz
}

// SyntheticVideoFactory constructs SyntheticVideoSource instances.
type SyntheticVideoFactory struct {
	Color byte
}

func (f SyntheticVideoFactory) New() (Source, error) {
	return NewSyntheticVideoSource(f.Color), nil
}

func (f SyntheticVideoFactory) Describes(other Factory) bool {
	o, ok := other.(SyntheticVideoFactory)
	return ok && o.Color == f.Color
}
