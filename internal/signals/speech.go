package signals

// #region collector
// SpeechCollector keeps the cumulative transcript word counts observed
// during a session. Samples are only ever appended.
type SpeechCollector struct {
	config  CollectorConfig
	samples []WordSample
	started bool
}

// NewSpeechCollector creates an idle collector.
func NewSpeechCollector(config CollectorConfig) *SpeechCollector {
	return &SpeechCollector{config: config}
}

// Start seeds the sample list with zero words at the full countdown.
func (s *SpeechCollector) Start(maxTicks int) {
	s.started = true
	s.samples = append(s.samples[:0], WordSample{TotalWords: 0, TicksRemaining: maxTicks})
}

// Started reports whether recognition has begun.
func (s *SpeechCollector) Started() bool { return s.started }

// Observe appends a cumulative word count seen at ticksRemaining. Counts
// arriving before Start are dropped.
func (s *SpeechCollector) Observe(totalWords, ticksRemaining int) (Signal, bool) {
	if !s.started {
		return Signal{}, false
	}
	s.samples = append(s.samples, WordSample{TotalWords: totalWords, TicksRemaining: ticksRemaining})
	return Signal{
		Modality: Speech,
		Tick:     ticksRemaining,
		Hit:      totalWords > 0,
		Value:    float64(totalWords),
	}, true
}

// Samples returns a copy of the recorded samples.
func (s *SpeechCollector) Samples() []WordSample {
	out := make([]WordSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// LatestWords returns the most recent cumulative word count.
func (s *SpeechCollector) LatestWords() int {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[len(s.samples)-1].TotalWords
}

// #endregion collector

// #region pace
// PaceWPM estimates the current words per minute from the samples of the
// last PaceWindowTicks ticks. ready is false until that much transcript
// history exists.
//
// A word count that goes backwards means the recognizer restarted its
// transcript; the estimate then reports ResetFallbackWPM instead of a
// negative pace.
func (s *SpeechCollector) PaceWPM(ticksRemaining int) (wpm float64, ready bool) {
	if len(s.samples) == 0 {
		return 0, false
	}
	if s.samples[0].TicksRemaining-ticksRemaining < s.config.PaceWindowTicks {
		return 0, false
	}

	var slice []WordSample
	for _, w := range s.samples {
		if w.TicksRemaining-ticksRemaining <= s.config.PaceWindowTicks {
			slice = append(slice, w)
		}
	}
	if len(slice) == 0 {
		return 0, true
	}
	first, last := slice[0], slice[len(slice)-1]
	if last.TotalWords < first.TotalWords {
		return s.config.ResetFallbackWPM, true
	}
	return float64(last.TotalWords-first.TotalWords) / s.config.PaceWindowSeconds * 60.0, true
}

// FinalWPM computes the session pace from the final transcript: words over
// the span from the first word's start to the last word's end.
func FinalWPM(segments []TranscriptSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	first, last := segments[0], segments[len(segments)-1]
	duration := last.Timestamp + last.Duration - first.Timestamp
	if duration <= 0 {
		return 0
	}
	return float64(len(segments)) / duration * 60
}

// #endregion pace
