package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/employee"
	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/events"
	"hrsync/internal/platform/retry"
)

type fakeRemote struct {
	mu          sync.Mutex
	attendances []deviceapi.RawAttendance
	users       []deviceapi.RawUser
	fetchErr    error
	deleteErr   error
	createErr   error
	created     []deviceapi.NewUser
	deletedUIDs []string
	lastFilters map[string]string

	fetchCalls atomic.Int32
	userCalls  atomic.Int32
	clearCalls atomic.Int32

	// entered and release let a test hold a fetch in flight.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRemote) FetchAttendances(ctx context.Context, filters map[string]string) ([]deviceapi.RawAttendance, error) {
	f.fetchCalls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilters = filters
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]deviceapi.RawAttendance, len(f.attendances))
	copy(out, f.attendances)
	return out, nil
}

func (f *fakeRemote) DeleteAttendances(context.Context) error {
	f.clearCalls.Add(1)
	return f.deleteErr
}

func (f *fakeRemote) FetchUsers(context.Context) ([]deviceapi.RawUser, error) {
	f.userCalls.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.users, nil
}

func (f *fakeRemote) CreateUser(_ context.Context, user deviceapi.NewUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, user)
	return f.createErr
}

func (f *fakeRemote) DeleteUser(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedUIDs = append(f.deletedUIDs, uid)
	return f.createErr
}

type memAttendanceStore struct {
	mu        sync.Mutex
	records   []attendance.Record
	index     map[attendance.Key]int
	nextID    int64
	upsertErr error
	findCalls int
}

func newMemAttendanceStore() *memAttendanceStore {
	return &memAttendanceStore{index: map[attendance.Key]int{}}
}

func (s *memAttendanceStore) UpsertMany(_ context.Context, records []attendance.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return 0, fmt.Errorf("%w: %w", attendance.ErrStoreFailure, s.upsertErr)
	}
	written := 0
	for _, rec := range attendance.Dedupe(records) {
		key := rec.Key()
		if pos, ok := s.index[key]; ok {
			rec.ID = s.records[pos].ID
			s.records[pos] = rec
		} else {
			s.nextID++
			rec.ID = s.nextID
			s.index[key] = len(s.records)
			s.records = append(s.records, rec)
		}
		written++
	}
	return written, nil
}

func (s *memAttendanceStore) FindPage(_ context.Context, filter attendance.Filter, page, pageSize int) ([]attendance.Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	matched := []attendance.Record{}
	for _, rec := range s.records {
		if filter.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	items, err := attendance.Paginate(matched, page, pageSize)
	return items, len(matched), err
}

func (s *memAttendanceStore) DeleteAll(_ context.Context, filter attendance.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var deleted int64
	s.index = map[attendance.Key]int{}
	for _, rec := range s.records {
		if filter.Matches(rec) {
			deleted++
			continue
		}
		s.index[rec.Key()] = len(kept)
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

func (s *memAttendanceStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memEmployeeStore struct {
	mu       sync.Mutex
	byExt    map[string]employee.Employee
	list     []employee.Employee
	profiles map[string]employee.Profile
}

func newMemEmployeeStore() *memEmployeeStore {
	return &memEmployeeStore{byExt: map[string]employee.Employee{}}
}

func (s *memEmployeeStore) GetByID(_ context.Context, id string) (employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, emp := range s.byExt {
		if emp.ID == id {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (s *memEmployeeStore) List(context.Context) ([]employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]employee.Employee, 0, len(s.byExt))
	for _, emp := range s.byExt {
		out = append(out, emp)
	}
	return out, nil
}

func (s *memEmployeeStore) ListProfiles(_ context.Context, userIDs []string) (map[string]employee.Profile, error) {
	out := map[string]employee.Profile{}
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memEmployeeStore) UpsertSynced(_ context.Context, user employee.SyncedUser) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, exists := s.byExt[user.ExternalID]
	if !exists {
		emp = employee.Employee{ID: "emp-" + user.ExternalID, ExternalID: user.ExternalID, UserID: user.UserID, FirstName: employee.DefaultName}
	}
	emp.LastName = user.Name
	if emp.LastName == "" {
		emp.LastName = employee.DefaultName
	}
	s.byExt[user.ExternalID] = emp
	return !exists, nil
}

func (s *memEmployeeStore) Create(_ context.Context, emp employee.Employee) (employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byExt[emp.ExternalID]; exists {
		return employee.Employee{}, employee.ErrAlreadyExists
	}
	emp.ID = "emp-" + emp.ExternalID
	s.byExt[emp.ExternalID] = emp
	return emp, nil
}

func (s *memEmployeeStore) Delete(_ context.Context, id string) (employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ext, emp := range s.byExt {
		if emp.ID == id {
			delete(s.byExt, ext)
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func rawPunch(uid int, userID string, ts time.Time) deviceapi.RawAttendance {
	return deviceapi.RawAttendance{
		UID:       deviceapi.Int(uid),
		UserID:    deviceapi.FlexString(userID),
		Punch:     deviceapi.Int(1),
		Status:    deviceapi.Int(1),
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
}

type fixture struct {
	remote    *fakeRemote
	store     *memAttendanceStore
	employees *memEmployeeStore
	events    *recordingPublisher
	engine    *Engine
}

func newFixture() *fixture {
	f := &fixture{
		remote:    &fakeRemote{},
		store:     newMemAttendanceStore(),
		employees: newMemEmployeeStore(),
		events:    &recordingPublisher{},
	}
	f.engine = New(f.remote, f.store, f.employees, f.events, Options{
		Retry: retry.Policy{MaxAttempts: 3, Delay: 0},
	})
	return f
}
