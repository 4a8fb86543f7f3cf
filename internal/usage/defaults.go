package usage

import "time"

const (
	starterPlan  = "Starter"
	starterLimit = 30
	usagePeriod  = 7 * 24 * time.Hour
)

func defaultUsage() Usage {
	return Usage{
		Plan:     starterPlan,
		Limit:    starterLimit,
		Used:     0,
		ResetsAt: time.Now().UTC().Add(usagePeriod),
	}
}
