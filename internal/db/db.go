package db

import (
	"fmt"

	"trestle/internal/auth"
	"trestle/internal/club"
	"trestle/internal/outbox"
	"trestle/internal/schedule"
	"trestle/internal/tower"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&club.Club{},
		&club.Membership{},
		&club.Application{},
		&club.InviteToken{},
		&tower.Tower{},
		&tower.TowerReport{},
		&tower.Issue{},
		&schedule.Session{},
		&schedule.Appointment{},
		&schedule.Notice{},
		&outbox.Message{},
	); err != nil {
		return err
	}

	// A layout address is unique inside its club while assigned. The
	// service checks first; these back it against concurrent writers.
	if err := gdb.Exec(`
create unique index if not exists uq_memberships_club_address
on memberships(club_id, address_number)
where address_number is not null;
`).Error; err != nil {
		return err
	}

	if err := gdb.Exec(`
create unique index if not exists uq_memberships_club_slot
on memberships(club_id, tower_slot)
where tower_slot is not null;
`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_appointments_club_starts on appointments(club_id, starts_at);`,
		`create index if not exists idx_appointments_user on appointments(user_id);`,
		`create index if not exists idx_reports_tower_day on tower_reports(tower_id, operating_day desc);`,
		`create index if not exists idx_outbox_pending on outbox_messages(status, created_at);`,
		`create index if not exists idx_outbox_failed on outbox_messages(status, updated_at desc);`,
		`create index if not exists idx_sessions_club_start on sessions(club_id, starts_at);`,
		`create index if not exists idx_notices_club_published on notices(club_id, published_at desc);`,
		`create index if not exists idx_issues_club_status on issues(club_id, status);`,
		`create index if not exists idx_applications_club_status on applications(club_id, status);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
