package services

import (
	"log/slog"

	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/metrics"
	"github.com/turtlelab/labtrack/repositories"
)

// Services holds all service instances
type Services struct {
	Conditions RecordService
	Locations  RecordService
	Boxes      RecordService
	Samples    RecordService
	Reagents   RecordService
	Accounts   RecordService
	Roles      RecordService

	Users UserService
	Login LoginService

	Movements MovementService
	Labels    LabelService

	LoginLog     LogService
	MovementLog  LogService
	LabelLog     LogService
	BoxingLog    LogService
	Times        LogService
	AttributeLog LogService
}

// New creates all services with their dependencies wired
func New(repos *repositories.Repositories, engine *integrity.Engine, logger *slog.Logger, m *metrics.Metrics) *Services {
	record := func(stores repositories.EntityStores, opts ...RecordOption) RecordService {
		return NewRecordService(stores, engine, logger, m, opts...)
	}

	conditions := record(repos.Conditions)
	locations := record(repos.Locations)
	boxes := record(repos.Boxes)
	samples := record(repos.Samples)
	reagents := record(repos.Reagents, WithAttributes(repos.ReagentAttributes, repos.AttributeLog))
	accounts := record(repos.Accounts)
	roles := record(repos.Roles)
	userRecords := record(repos.Users)

	users := NewUserService(userRecords, repos.Users.Records, roles, engine, logger)
	login := NewLoginService(users, repos.LoginLog, engine, logger, m)
	movements := NewMovementService(samples, boxes, locations, accounts,
		repos.MovementLog, repos.BoxingLog, repos.Times, engine, logger, m)
	labels := NewLabelService(repos.LabelLog, engine, logger)

	return &Services{
		Conditions: conditions,
		Locations:  locations,
		Boxes:      boxes,
		Samples:    samples,
		Reagents:   reagents,
		Accounts:   accounts,
		Roles:      roles,

		Users: users,
		Login: login,

		Movements: movements,
		Labels:    labels,

		LoginLog:     NewLogService(repos.LoginLog, engine, logger, m),
		MovementLog:  NewLogService(repos.MovementLog, engine, logger, m),
		LabelLog:     NewLogService(repos.LabelLog, engine, logger, m),
		BoxingLog:    NewLogService(repos.BoxingLog, engine, logger, m),
		Times:        NewLogService(repos.Times, engine, logger, m),
		AttributeLog: NewLogService(repos.AttributeLog, engine, logger, m),
	}
}
