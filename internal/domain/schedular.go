package domain

import "context"

// Schedule is a recurring task dispatch.
type Schedule struct {
	Name     string `mapstructure:"name" json:"name" validate:"required,min=1,max=128"`
	CronExpr string `mapstructure:"cron_expr" json:"cron_expr" validate:"required,cron"`
	Count    int    `mapstructure:"count" json:"count" validate:"gt=0"`
}

type Schedular interface {
	Start(ctx context.Context) error

	AddSchedule(s Schedule) error
	RemoveSchedule(name string) error
}
