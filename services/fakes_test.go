package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/repository"
)

// In-memory repository fakes. The timesheet fake mirrors the conditional
// write semantics of the mongo implementation so the concurrency behavior
// under test matches production.

type fakeTimesheetRepo struct {
	mu     sync.Mutex
	sheets map[string]*models.Timesheet
}

func newFakeTimesheetRepo() *fakeTimesheetRepo {
	return &fakeTimesheetRepo{sheets: make(map[string]*models.Timesheet)}
}

func sheetKey(userID, orgID primitive.ObjectID, day time.Time) string {
	return userID.Hex() + "/" + orgID.Hex() + "/" + day.UTC().Format(time.RFC3339)
}

func copySheet(s *models.Timesheet) *models.Timesheet {
	out := *s
	out.Sessions = make([]models.Session, len(s.Sessions))
	copy(out.Sessions, s.Sessions)
	return &out
}

func (r *fakeTimesheetRepo) FindByKey(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time) (*models.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sheets[sheetKey(userID, orgID, day)]
	if !ok {
		return nil, nil
	}
	return copySheet(s), nil
}

func (r *fakeTimesheetRepo) OpenSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := sheetKey(userID, orgID, day)
	s, ok := r.sheets[k]
	if !ok {
		s = &models.Timesheet{
			ID:             primitive.NewObjectID(),
			UserID:         userID,
			OrganizationID: orgID,
			Date:           day,
			Status:         models.StatusAbsent,
		}
		r.sheets[k] = s
	}
	if s.HasOpenSession {
		return nil, repository.ErrSessionConflict
	}
	s.Sessions = append(s.Sessions, models.Session{CheckIn: &point})
	s.HasOpenSession = true
	return copySheet(s), nil
}

func (r *fakeTimesheetRepo) CloseSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sheets[sheetKey(userID, orgID, day)]
	if !ok || !s.HasOpenSession {
		return nil, repository.ErrSessionConflict
	}
	for i := range s.Sessions {
		if s.Sessions[i].Open() {
			s.Sessions[i].CheckOut = &point
			break
		}
	}
	s.HasOpenSession = false
	return copySheet(s), nil
}

func (r *fakeTimesheetRepo) SetDerived(ctx context.Context, id primitive.ObjectID, sessions []models.Session, totalMinutes int, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sheets {
		if s.ID == id {
			s.Sessions = make([]models.Session, len(sessions))
			copy(s.Sessions, sessions)
			s.TotalWorkingMinutes = totalMinutes
			s.Status = status
			return nil
		}
	}
	return nil
}

func (r *fakeTimesheetRepo) InsertIfAbsent(ctx context.Context, sheet *models.Timesheet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := sheetKey(sheet.UserID, sheet.OrganizationID, sheet.Date)
	if _, ok := r.sheets[k]; ok {
		return false, nil
	}
	stored := copySheet(sheet)
	stored.ID = primitive.NewObjectID()
	r.sheets[k] = stored
	return true, nil
}

func (r *fakeTimesheetRepo) FindByUserInRange(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) ([]models.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Timesheet
	for _, s := range r.sheets {
		if s.UserID == userID && s.OrganizationID == orgID && !s.Date.Before(start) && !s.Date.After(end) {
			out = append(out, *copySheet(s))
		}
	}
	return out, nil
}

func (r *fakeTimesheetRepo) FindByOrgDateWithUsers(ctx context.Context, orgID primitive.ObjectID, day time.Time) ([]models.TimesheetWithUser, error) {
	return []models.TimesheetWithUser{}, nil
}

func (r *fakeTimesheetRepo) SummarizeByOrgRange(ctx context.Context, orgID primitive.ObjectID, start, end time.Time) ([]models.TimesheetSummary, error) {
	return []models.TimesheetSummary{}, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
}

func (r *fakeEventRepo) Append(ctx context.Context, event *models.AttendanceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) FindLastInWindow(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) (*models.AttendanceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.AttendanceEvent
	for i := range r.events {
		e := r.events[i]
		if e.UserID != userID || e.OrganizationID != orgID {
			continue
		}
		if e.Instant.Before(start) || e.Instant.After(end) {
			continue
		}
		if last == nil || e.Instant.After(last.Instant) {
			last = &r.events[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	out := *last
	return &out, nil
}

func (r *fakeEventRepo) FindByUserInRange(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]models.AttendanceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceEvent
	for _, e := range r.events {
		if e.UserID == userID && !e.Instant.Before(start) && !e.Instant.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) FindAllActiveWorkers(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.Active && u.Role == models.RoleWorker {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) BindDevice(ctx context.Context, id primitive.ObjectID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.Device = models.DeviceInfo{DeviceID: deviceID, IsRegistered: true}
	u.DeviceChange = nil
	return nil
}

func (r *fakeUserRepo) SetDeviceChange(ctx context.Context, id primitive.ObjectID, req *models.DeviceChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.DeviceChange = req
	}
	return nil
}

func (r *fakeUserRepo) ClearFirstLogin(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsFirstLogin = false
	}
	return nil
}

type fakeQRRepo struct {
	mu         sync.Mutex
	codes      []*models.QRCode
	findCalls  int
	usageCalls int
}

func (r *fakeQRRepo) Supersede(ctx context.Context, code *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.OrganizationID == code.OrganizationID && c.Type == code.Type {
			c.Active = false
		}
	}
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	code.Active = true
	stored := *code
	r.codes = append(r.codes, &stored)
	return nil
}

func (r *fakeQRRepo) FindByToken(ctx context.Context, token string) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	for _, c := range r.codes {
		if c.Token == token {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeQRRepo) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usageCalls++
	for _, c := range r.codes {
		if c.ID == id {
			c.UsageCount++
		}
	}
	return nil
}

func (r *fakeQRRepo) activeCount(orgID primitive.ObjectID, codeType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.OrganizationID == orgID && c.Type == codeType && c.Active {
			n++
		}
	}
	return n
}
