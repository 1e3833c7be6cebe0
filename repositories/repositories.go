package repositories

import (
	"database/sql"

	"github.com/turtlelab/labtrack/models"
)

// EntityStores bundles the record table and its audit trail for one entity
type EntityStores struct {
	Records RecordStore
	Audit   AuditStore
}

// Repositories holds every data store of the application
type Repositories struct {
	Conditions EntityStores
	Locations  EntityStores
	Boxes      EntityStores
	Samples    EntityStores
	Reagents   EntityStores
	Accounts   EntityStores
	Roles      EntityStores
	Users      EntityStores

	ReagentAttributes DynamicStore
	AttributeLog      LogStore

	LoginLog    LogStore
	MovementLog LogStore
	LabelLog    LogStore
	BoxingLog   LogStore
	Times       TimesStore
}

// New creates all repositories with the given database connection
func New(db *sql.DB) *Repositories {
	entity := func(schema models.Schema) EntityStores {
		return EntityStores{
			Records: NewRecordStore(db, schema),
			Audit:   NewAuditStore(db, schema),
		}
	}

	return &Repositories{
		Conditions: entity(models.ConditionSchema),
		Locations:  entity(models.LocationSchema),
		Boxes:      entity(models.BoxSchema),
		Samples:    entity(models.SampleSchema),
		Reagents:   entity(models.ReagentSchema),
		Accounts:   entity(models.AccountSchema),
		Roles:      entity(models.RoleSchema),
		Users:      entity(models.UserSchema),

		ReagentAttributes: NewDynamicStore(db),
		AttributeLog:      NewLogStore(db, models.ReagentAttributeLogSchema),

		LoginLog:    NewLogStore(db, models.LoginLogSchema),
		MovementLog: NewLogStore(db, models.MovementLogSchema),
		LabelLog:    NewLogStore(db, models.LabelLogSchema),
		BoxingLog:   NewLogStore(db, models.BoxingLogSchema),
		Times:       NewTimesStore(db),
	}
}
