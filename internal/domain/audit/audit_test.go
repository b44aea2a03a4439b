package audit

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestRecordMarshalsSnapshots(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs(ActionAttendanceClear, "attendance", "", []byte(nil), []byte(`{"deleted":3}`), "req-1", "127.0.0.1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = New(mock).Record(context.Background(), ActionAttendanceClear, "attendance", "", "req-1", "127.0.0.1", nil, map[string]int{"deleted": 3})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListFiltersByAction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	created := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM audit_events WHERE 1=1 AND action = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(ActionEmployeeCreate, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}).
			AddRow(int64(1), ActionEmployeeCreate, "employee", "emp-1", "req-1", "", created))

	events, err := New(mock).List(context.Background(), Filter{Action: ActionEmployeeCreate}, false, 20, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != "emp-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
