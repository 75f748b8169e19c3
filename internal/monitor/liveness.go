package monitor

import "fmt"

// LivenessChecker drives the temperature bookkeeping of a set of monitors.
type LivenessChecker struct {
	monitors []*Monitor
}

// NewLivenessChecker creates a checker over monitors.
func NewLivenessChecker(monitors []*Monitor) *LivenessChecker {
	return &LivenessChecker{monitors: monitors}
}

// EndRound is a scheduler.RoundHook.
func (c *LivenessChecker) EndRound(round int) error {
	for _, mo := range c.monitors {
		if err := mo.EndRound(round); err != nil {
			return err
		}
	}
	return nil
}

// AtQuiescence checks that no monitor is left hot.
func (c *LivenessChecker) AtQuiescence() error {
	for _, mo := range c.monitors {
		if err := mo.AtQuiescence(); err != nil {
			return err
		}
	}
	return nil
}

func errTemperature(temperature, max, round int) error {
	return fmt.Errorf("temperature %d exceeds %d at round %d", temperature, max, round)
}
