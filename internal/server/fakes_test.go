package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/nexthire/internal/config"
	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/mailer"
	"github.com/jonathan/nexthire/internal/objectid"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/server/ratelimit"
	"github.com/jonathan/nexthire/internal/storage"
	"github.com/jonathan/nexthire/internal/webhook"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        sync.Mutex
	companies map[string]*db.Company
	jobs      map[string]*db.Job
	apps      map[string]*db.Application
	profiles  map[string]*db.UserProfile
	clock     time.Time

	pingErr    error
	analytics  db.Analytics
	industries []db.IndustryCount
	dashboards map[string]*db.CompanyDashboard

	recommendVariants []string
	recommendSkills   []string
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies:  map[string]*db.Company{},
		jobs:       map[string]*db.Job{},
		apps:       map[string]*db.Application{},
		profiles:   map[string]*db.UserProfile{},
		dashboards: map[string]*db.CompanyDashboard{},
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CreateCompany(_ context.Context, c *db.Company) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.companies {
		if other.ContactEmail == c.ContactEmail || other.RegistrationNumber == c.RegistrationNumber {
			return nil, fmt.Errorf("create company: %w", db.ErrUniqueViolation)
		}
	}
	cp := *c
	cp.ID = objectid.New()
	cp.CreatedAt = f.tick()
	cp.UpdatedAt = cp.CreatedAt
	f.companies[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetCompanyByID(_ context.Context, id string) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (f *fakeStore) ListCompaniesByUser(_ context.Context, userID string) ([]db.CompanySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.CompanySummary{}
	for _, c := range f.sortedCompanies() {
		if c.UserID == userID {
			out = append(out, db.CompanySummary{ID: c.ID, Name: c.Name})
		}
	}
	return out, nil
}

func (f *fakeStore) sortedCompanies() []*db.Company {
	out := make([]*db.Company, 0, len(f.companies))
	for _, c := range f.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListUnverifiedCompanies(context.Context) ([]db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.Company{}
	for _, c := range f.sortedCompanies() {
		if !c.IsVerified {
			out = append(out, *c)
		}
	}
	return out, nil
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (f *fakeStore) UpdateCompany(_ context.Context, id string, u db.CompanyUpdate) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, nil
	}
	if u.ContactEmail != nil {
		for _, other := range f.companies {
			if other.ID != id && other.ContactEmail == *u.ContactEmail {
				return nil, fmt.Errorf("update company: %w", db.ErrUniqueViolation)
			}
		}
	}
	setIf(&c.Name, u.Name)
	setIf(&c.LegalName, u.LegalName)
	setIf(&c.RegistrationNumber, u.RegistrationNumber)
	setIf(&c.Website, u.Website)
	setIf(&c.Industry, u.Industry)
	setIf(&c.About, u.About)
	setIf(&c.ContactEmail, u.ContactEmail)
	if u.YearFounded != nil {
		c.YearFounded = *u.YearFounded
	}
	c.UpdatedAt = f.tick()
	out := *c
	return &out, nil
}

func (f *fakeStore) VerifyCompany(_ context.Context, id string) (*db.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.companies[id]
	if !ok {
		return nil, nil
	}
	c.IsVerified = true
	out := *c
	return &out, nil
}

func (f *fakeStore) DeleteCompany(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[id]; !ok {
		return false, nil
	}
	delete(f.companies, id)
	return true, nil
}

func (f *fakeStore) CreateJob(_ context.Context, j *db.Job) (*db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[j.CompanyID]; !ok {
		return nil, fmt.Errorf("create job: %w", db.ErrMissingReference)
	}
	cp := *j
	cp.ID = objectid.New()
	if cp.Status == "" {
		cp.Status = db.JobStatusActive
	}
	cp.PostedAt = f.tick()
	cp.UpdatedAt = cp.PostedAt
	f.jobs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) GetJobByID(_ context.Context, id string) (*db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *j
	return &out, nil
}

func (f *fakeStore) UpdateJob(_ context.Context, id string, u db.JobUpdate) (*db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	setIf(&j.Title, u.Title)
	setIf(&j.Description, u.Description)
	setIf(&j.Location, u.Location)
	setIf(&j.EmploymentType, u.EmploymentType)
	setIf(&j.Status, u.Status)
	if u.SalaryMin != nil {
		j.SalaryMin = u.SalaryMin
	}
	if u.SalaryMax != nil {
		j.SalaryMax = u.SalaryMax
	}
	if u.Requirements != nil {
		j.Requirements = u.Requirements
	}
	if u.ExpiresAt != nil {
		j.ExpiresAt = u.ExpiresAt
	}
	if u.ClearExpiresAt {
		j.ExpiresAt = nil
	}
	j.UpdatedAt = f.tick()
	out := *j
	return &out, nil
}

func (f *fakeStore) DeleteJob(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return false, nil
	}
	delete(f.jobs, id)
	return true, nil
}

func (f *fakeStore) ListJobs(_ context.Context, filter db.JobFilter) (*db.JobPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []db.Job
	for _, j := range f.jobs {
		switch {
		case filter.CompanyID != "" && j.CompanyID != filter.CompanyID,
			filter.PostedBy != "" && j.UserID != filter.PostedBy,
			filter.Status != "" && j.Status != filter.Status,
			filter.EmploymentType != "" && j.EmploymentType != filter.EmploymentType,
			filter.Search != "" && !strings.Contains(strings.ToLower(j.Title), strings.ToLower(filter.Search)),
			slices.Contains(filter.ExcludeIDs, j.ID):
			continue
		}
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].PostedAt.After(jobs[b].PostedAt) })
	page := db.NormalizePage(filter.Page)
	total := len(jobs)
	start := min(db.PageOffset(page), total)
	end := min(start+db.JobsPerPage, total)
	return &db.JobPage{
		Jobs:       append([]db.Job{}, jobs[start:end]...),
		TotalJobs:  total,
		Page:       page,
		TotalPages: db.TotalPages(total),
	}, nil
}

func (f *fakeStore) RecommendJobs(_ context.Context, viewer string, variants, skills []string) ([]db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommendVariants = variants
	f.recommendSkills = skills
	out := []db.Job{}
	for _, j := range f.jobs {
		applied := false
		for _, a := range f.apps {
			if a.JobID == j.ID && a.UserID == viewer {
				applied = true
			}
		}
		if applied || j.Status != db.JobStatusActive {
			continue
		}
		for _, req := range j.Requirements {
			if slices.Contains(variants, strings.ToLower(req)) {
				out = append(out, *j)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateApplication(_ context.Context, in db.NewApplication) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[in.JobID]; !ok {
		return nil, fmt.Errorf("create application: %w", db.ErrMissingReference)
	}
	for _, a := range f.apps {
		if a.JobID == in.JobID && a.UserID == in.UserID {
			return nil, db.ErrAlreadyApplied
		}
	}
	a := &db.Application{
		ID:             objectid.New(),
		JobID:          in.JobID,
		UserID:         in.UserID,
		ApplicantName:  in.ApplicantName,
		ApplicantEmail: in.ApplicantEmail,
		ResumeURL:      in.ResumeURL,
		CoverLetter:    in.CoverLetter,
		Status:         db.StatusPending,
		ATSStatus:      in.ATSStatus,
	}
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	f.apps[a.ID] = a
	out := *a
	return &out, nil
}

// withJob copies a and attaches its job context.
func (f *fakeStore) withJob(a *db.Application) *db.Application {
	out := *a
	j, ok := f.jobs[a.JobID]
	if !ok {
		return &out
	}
	out.Job = &db.ApplicationJob{
		ID:             j.ID,
		Title:          j.Title,
		Location:       j.Location,
		EmploymentType: j.EmploymentType,
		Status:         j.Status,
		UserID:         j.UserID,
	}
	if c, ok := f.companies[j.CompanyID]; ok {
		out.Job.Company = &db.CompanySummary{ID: c.ID, Name: c.Name, LogoURL: c.LogoURL}
		out.Job.CompanyOwner = c.UserID
	}
	return &out
}

func (f *fakeStore) GetApplication(_ context.Context, id string) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, nil
	}
	return f.withJob(a), nil
}

func (f *fakeStore) updateApp(id string, fn func(*db.Application)) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, nil
	}
	fn(a)
	a.UpdatedAt = f.tick()
	out := *a
	return &out, nil
}

func (f *fakeStore) UpdateApplicationStatus(_ context.Context, id string, status db.ApplicationStatus) (*db.Application, error) {
	return f.updateApp(id, func(a *db.Application) { a.Status = status })
}

func (f *fakeStore) ScheduleInterview(_ context.Context, id string, at time.Time, link string) (*db.Application, error) {
	return f.updateApp(id, func(a *db.Application) {
		a.Status = db.StatusInterview
		a.InterviewDate = &at
		a.InterviewLink = link
	})
}

func (f *fakeStore) CancelInterview(_ context.Context, id string) (*db.Application, error) {
	return f.updateApp(id, func(a *db.Application) {
		a.Status = db.StatusReviewed
		a.InterviewDate = nil
		a.InterviewLink = ""
	})
}

func (f *fakeStore) listApps(keep func(*db.Application) bool) []db.Application {
	out := []db.Application{}
	for _, a := range f.apps {
		if keep(a) {
			out = append(out, *f.withJob(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListApplicationsByUser(_ context.Context, userID string) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listApps(func(a *db.Application) bool { return a.UserID == userID }), nil
}

func (f *fakeStore) ListApplicationsByCompany(_ context.Context, companyID string) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listApps(func(a *db.Application) bool {
		j, ok := f.jobs[a.JobID]
		return ok && j.CompanyID == companyID
	}), nil
}

func (f *fakeStore) latest(userID string) *db.Application {
	var latest *db.Application
	for _, a := range f.apps {
		if a.UserID == userID && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
		}
	}
	return latest
}

func (f *fakeStore) LatestResumeURL(_ context.Context, userID string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.latest(userID)
	if a == nil || a.ResumeURL == "" {
		return nil, nil
	}
	url := a.ResumeURL
	return &url, nil
}

func (f *fakeStore) ReplaceLatestResume(_ context.Context, userID, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.latest(userID)
	if a == nil {
		return false, nil
	}
	a.ResumeURL = url
	return true, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*db.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (f *fakeStore) EnsureProfile(_ context.Context, userID, headline string) (*db.UserProfile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		out := *p
		return &out, false, nil
	}
	p := &db.UserProfile{ID: objectid.New(), UserID: userID, Headline: headline, Skills: []string{}}
	p.CreatedAt = f.tick()
	p.UpdatedAt = p.CreatedAt
	f.profiles[userID] = p
	out := *p
	return &out, true, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, userID string, u db.ProfileUpdate) (*db.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		p = &db.UserProfile{ID: objectid.New(), UserID: userID, Skills: []string{}, CreatedAt: f.tick()}
		f.profiles[userID] = p
	}
	setIf(&p.Headline, u.Headline)
	setIf(&p.Bio, u.Bio)
	setIf(&p.Location, u.Location)
	if u.Skills != nil {
		p.Skills = u.Skills
	}
	if u.Experience != nil {
		p.Experience = u.Experience
	}
	if u.Education != nil {
		p.Education = u.Education
	}
	if u.SocialLinks != nil {
		p.SocialLinks = u.SocialLinks
	}
	p.UpdatedAt = f.tick()
	out := *p
	return &out, nil
}

func (f *fakeStore) DeleteProfile(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[userID]; !ok {
		return false, nil
	}
	delete(f.profiles, userID)
	for id, a := range f.apps {
		if a.UserID == userID {
			delete(f.apps, id)
		}
	}
	return true, nil
}

func (f *fakeStore) Analytics(context.Context) (*db.Analytics, error) {
	out := f.analytics
	return &out, nil
}

func (f *fakeStore) JobsByIndustry(_ context.Context, limit int) ([]db.IndustryCount, error) {
	if len(f.industries) > limit {
		return f.industries[:limit], nil
	}
	return f.industries, nil
}

func (f *fakeStore) CompanyDashboard(_ context.Context, ownerID string) (*db.CompanyDashboard, error) {
	if d, ok := f.dashboards[ownerID]; ok {
		return d, nil
	}
	return &db.CompanyDashboard{AppsByStatus: map[string]int{}, AppsByJob: []db.JobAppCount{}}, nil
}

// memFiles is an in-memory storage.Store.
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memFiles) Put(_ context.Context, folder, publicID, contentType string, body io.Reader) (storage.Object, error) {
	if m.putErr != nil {
		return storage.Object{}, m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := folder + "/" + publicID
	m.objects[key] = data
	m.types[key] = contentType
	return storage.Object{URL: "https://files.test/" + key, PublicID: publicID}, nil
}

func (m *memFiles) Delete(_ context.Context, folder, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := folder + "/" + publicID
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memFiles) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	sort.Strings(out)
	return out
}

func (p *fakePublisher) find(typ string) (events.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == typ {
			return e, true
		}
	}
	return events.Event{}, false
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type scoreRequest struct {
	id           string
	resume       []byte
	requirements []string
}

type fakeScorer struct {
	mu       sync.Mutex
	requests []scoreRequest
}

func (s *fakeScorer) Submit(id string, resume []byte, requirements []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, scoreRequest{id: id, resume: resume, requirements: requirements})
	return nil
}

// testEnv is a server wired to fakes. Requests go through the full
// handler chain.
type testEnv struct {
	srv     *Server
	handler http.Handler
	store   *fakeStore
	users   *identity.Memory
	files   *memFiles
	mail    *fakeMailer
	events  *fakePublisher
	notes   *fakeNotifier
	scorer  *fakeScorer
	tokens  *JWTService
}

const testWebhookSecret = "whsec_c2VjcmV0LWtleS1mb3ItdGVzdHM="

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-for-handler-tests",
		Issuer:          "nexthire-test",
		ExpirationHours: 1,
	})
	require.NoError(t, err)

	env := &testEnv{
		store:  newFakeStore(),
		users:  identity.NewMemory(),
		files:  newMemFiles(),
		mail:   &fakeMailer{},
		events: &fakePublisher{},
		notes:  &fakeNotifier{},
		scorer: &fakeScorer{},
		tokens: tokens,
	}

	verifier, err := newTestVerifier()
	require.NoError(t, err)

	env.srv, err = New(Config{Port: 0}, Deps{
		Store:     env.store,
		Identity:  env.users,
		Tokens:    tokens.AsTokenValidator(),
		Storage:   env.files,
		Mailer:    env.mail,
		Events:    env.events,
		Notifier:  env.notes,
		Scorer:    env.scorer,
		Webhook:   verifier,
		RateLimit: &ratelimit.Config{Enabled: false},
	})
	require.NoError(t, err)
	env.handler = env.srv.Handler()
	t.Cleanup(func() { env.srv.rateLimiter.Stop() })
	return env
}

// user registers an identity-provider account.
func (e *testEnv) user(id string, role policy.Role) {
	e.users.Put(identity.User{
		ID:        id,
		FirstName: "Test",
		LastName:  id,
		Email:     id + "@example.com",
		Role:      role,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

// wait drains background side effects.
func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.srv.bg.Wait(ctx))
}

func (e *testEnv) authorize(t *testing.T, req *http.Request, userID string) {
	t.Helper()
	if userID == "" {
		return
	}
	token, err := e.tokens.GenerateToken(userID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

// do sends a JSON request as userID ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	e.authorize(t, req, userID)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// formFile is one file part of a multipart request.
type formFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

// upload sends a multipart request as userID.
func (e *testEnv) upload(t *testing.T, path string, fields map[string]string, file *formFile, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.field, file.name))
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	e.authorize(t, req, userID)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// seedCompany stores a company owned by ownerID.
func (e *testEnv) seedCompany(t *testing.T, ownerID, name string) *db.Company {
	t.Helper()
	c, err := e.store.CreateCompany(context.Background(), &db.Company{
		Name:               name,
		UserID:             ownerID,
		RegistrationNumber: "REG-" + name,
		ContactEmail:       strings.ToLower(name) + "@corp.test",
		Industry:           "Software",
	})
	require.NoError(t, err)
	return c
}

// seedJob stores an active job of company posted by its owner.
func (e *testEnv) seedJob(t *testing.T, company *db.Company, title string, requirements ...string) *db.Job {
	t.Helper()
	j, err := e.store.CreateJob(context.Background(), &db.Job{
		Title:          title,
		Description:    title + " role",
		CompanyID:      company.ID,
		UserID:         company.UserID,
		Location:       "Remote",
		EmploymentType: "Full-time",
		Requirements:   requirements,
	})
	require.NoError(t, err)
	return j
}

// seedApplication stores an application of userID for job.
func (e *testEnv) seedApplication(t *testing.T, job *db.Job, userID string) *db.Application {
	t.Helper()
	_, _, err := e.store.EnsureProfile(context.Background(), userID, "")
	require.NoError(t, err)
	a, err := e.store.CreateApplication(context.Background(), db.NewApplication{
		JobID:          job.ID,
		UserID:         userID,
		ApplicantName:  "Applicant " + userID,
		ApplicantEmail: userID + "@example.com",
		ResumeURL:      "https://files.test/resumes/" + userID + ".pdf",
		ATSStatus:      db.ATSPending,
	})
	require.NoError(t, err)
	return a
}

// decode unmarshals a JSON response body.
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, w)["error"].(string)
}

var errBoom = errors.New("boom")

func newTestVerifier() (*webhook.Verifier, error) {
	return webhook.NewVerifier(testWebhookSecret)
}
