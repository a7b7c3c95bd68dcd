package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/titlescore/titlescore/authz"
	"github.com/titlescore/titlescore/identity"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/repositories"
	"github.com/titlescore/titlescore/storage"
)

// Общие in-memory фейки для тестов сервисного слоя.

type relationKey struct {
	resourceType string
	resourceID   string
	subjectID    string
}

type writeOp struct {
	ResourceID string
	SubjectID  string
	Relation   string
	Op         authz.Operation
}

// fakeAuthzClient — relationship store в памяти с упрощенной схемой прав:
// owner видит/управляет/администрирует, organizer видит/управляет,
// judge видит/оценивает.
type fakeAuthzClient struct {
	mu        sync.Mutex
	relations map[relationKey]string
	writes    []writeOp
	checks    int
	tokenSeq  int

	// failNextWrites заставляет следующие N записей вернуть ошибку.
	failNextWrites int
	// failNextCreates — то же, но только для create-записей.
	failNextCreates int
	// unspecified заставляет CheckPermission вернуть nil Granted.
	unspecified bool
	// checkErr возвращается из CheckPermission вместо результата.
	checkErr error
}

func newFakeAuthzClient() *fakeAuthzClient {
	return &fakeAuthzClient{relations: make(map[relationKey]string)}
}

var fakeRolePermissions = map[string][]string{
	"owner":     {PermissionView, PermissionManage, PermissionAdmin},
	"organizer": {PermissionView, PermissionManage},
	"judge":     {PermissionView, PermissionScore},
}

func (f *fakeAuthzClient) CheckPermission(ctx context.Context, subjectID, resourceType, resourceID, permission string) (*authz.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++

	if f.checkErr != nil {
		return nil, f.checkErr
	}
	if f.unspecified {
		return &authz.CheckResult{ConsistencyToken: f.nextToken()}, nil
	}

	granted := false
	if role, ok := f.relations[relationKey{resourceType, resourceID, subjectID}]; ok {
		for _, p := range fakeRolePermissions[role] {
			if p == permission {
				granted = true
				break
			}
		}
	}
	return &authz.CheckResult{Granted: &granted, ConsistencyToken: f.nextToken()}, nil
}

func (f *fakeAuthzClient) WriteRelationships(ctx context.Context, resourceType, resourceID string, updates []authz.RelationshipUpdate, op authz.Operation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNextWrites > 0 {
		f.failNextWrites--
		return "", errors.New("write unavailable")
	}
	if op == authz.OperationCreate && f.failNextCreates > 0 {
		f.failNextCreates--
		return "", errors.New("write unavailable")
	}

	for _, u := range updates {
		key := relationKey{resourceType, resourceID, u.SubjectID}
		if op == authz.OperationCreate {
			f.relations[key] = u.Relation
		} else {
			delete(f.relations, key)
		}
		f.writes = append(f.writes, writeOp{
			ResourceID: resourceID,
			SubjectID:  u.SubjectID,
			Relation:   u.Relation,
			Op:         op,
		})
	}
	return f.nextToken(), nil
}

func (f *fakeAuthzClient) ReadRelationships(ctx context.Context, filter authz.RelationshipFilter) (*authz.RelationshipStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lines []string
	for key, relation := range f.relations {
		if key.resourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && key.resourceID != filter.ResourceID {
			continue
		}
		if filter.SubjectID != "" && key.subjectID != filter.SubjectID {
			continue
		}
		if filter.Relation != "" && relation != filter.Relation {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			`{"result":{"readAt":{"token":"tok"},"relationship":{"resource":{"objectType":"titlescore/contest","objectId":%q},"relation":%q,"subject":{"object":{"objectType":"titlescore/user","objectId":%q}}}}}`,
			key.resourceID, relation, key.subjectID,
		))
	}
	body := io.NopCloser(strings.NewReader(strings.Join(lines, "\n")))
	return authz.NewRelationshipStream(body), nil
}

func (f *fakeAuthzClient) nextToken() string {
	f.tokenSeq++
	return fmt.Sprintf("tok-%d", f.tokenSeq)
}

func (f *fakeAuthzClient) grant(contestID, userID, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations[relationKey{"contest", contestID, userID}] = role
}

func (f *fakeAuthzClient) relationOf(contestID, userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relations[relationKey{"contest", contestID, userID}]
}

type fakeContestRepo struct {
	mu       sync.Mutex
	contests map[string]*models.Contest
	tokens   map[string]string
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{
		contests: make(map[string]*models.Contest),
		tokens:   make(map[string]string),
	}
}

func (r *fakeContestRepo) Create(ctx context.Context, contest *models.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contests[contest.ID]; ok {
		return repositories.ErrContestConflict
	}
	copied := *contest
	r.contests[contest.ID] = &copied
	return nil
}

func (r *fakeContestRepo) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contest, ok := r.contests[id]
	if !ok {
		return nil, repositories.ErrContestNotFound
	}
	copied := *contest
	return &copied, nil
}

func (r *fakeContestRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.contests[id]
	return ok, nil
}

func (r *fakeContestRepo) ListByIDs(ctx context.Context, ids []string) ([]*models.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contest
	for _, id := range ids {
		if contest, ok := r.contests[id]; ok {
			copied := *contest
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeContestRepo) Update(ctx context.Context, contest *models.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contests[contest.ID]; !ok {
		return repositories.ErrContestNotFound
	}
	copied := *contest
	r.contests[contest.ID] = &copied
	return nil
}

func (r *fakeContestRepo) UpdateZedToken(ctx context.Context, id string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contests[id]; !ok {
		return repositories.ErrContestNotFound
	}
	r.tokens[id] = token
	return nil
}

func (r *fakeContestRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contests[id]; !ok {
		return repositories.ErrContestNotFound
	}
	delete(r.contests, id)
	return nil
}

func (r *fakeContestRepo) zedToken(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[id]
}

type memberKey struct {
	contestID string
	userID    string
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[memberKey]*models.ContestMember
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[memberKey]*models.ContestMember)}
}

func (r *fakeMemberRepo) Upsert(ctx context.Context, member *models.ContestMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *member
	r.members[memberKey{member.ContestID, member.UserID}] = &copied
	return nil
}

func (r *fakeMemberRepo) Get(ctx context.Context, contestID, userID string) (*models.ContestMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[memberKey{contestID, userID}]
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (r *fakeMemberRepo) GetAnyByUserID(ctx context.Context, userID string) (*models.ContestMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, member := range r.members {
		if key.userID == userID {
			copied := *member
			return &copied, nil
		}
	}
	return nil, repositories.ErrMemberNotFound
}

func (r *fakeMemberRepo) ListByContestAndUserIDs(ctx context.Context, contestID string, userIDs []string) ([]*models.ContestMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ContestMember
	for _, userID := range userIDs {
		if member, ok := r.members[memberKey{contestID, userID}]; ok {
			copied := *member
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) Delete(ctx context.Context, contestID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{contestID, userID}
	if _, ok := r.members[key]; !ok {
		return repositories.ErrMemberNotFound
	}
	delete(r.members, key)
	return nil
}

type fakeIdentityProvider struct {
	mu      sync.Mutex
	byEmail map[string]*identity.User
	byID    map[string]*identity.User
	seq     int

	// batchErr возвращается из GetBatch вместо результата.
	batchErr error
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{
		byEmail: make(map[string]*identity.User),
		byID:    make(map[string]*identity.User),
	}
}

func (p *fakeIdentityProvider) add(id, email, firstName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := &identity.User{ID: id, Email: email, FirstName: firstName}
	p.byEmail[email] = user
	p.byID[id] = user
}

func (p *fakeIdentityProvider) LookupByEmail(ctx context.Context, email string) (*identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byEmail[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (p *fakeIdentityProvider) Create(ctx context.Context, email, firstName string) (*identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	user := &identity.User{ID: fmt.Sprintf("user-%d", p.seq), Email: email, FirstName: firstName}
	p.byEmail[email] = user
	p.byID[user.ID] = user
	copied := *user
	return &copied, nil
}

func (p *fakeIdentityProvider) GetBatch(ctx context.Context, ids []string) ([]identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batchErr != nil {
		return nil, p.batchErr
	}
	var out []identity.User
	for _, id := range ids {
		if user, ok := p.byID[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

type sentInvite struct {
	To          string
	ContestName string
	Role        models.Role
	VerifyLink  string
}

type fakeMailer struct {
	mu      sync.Mutex
	invites []sentInvite
	fail    bool
}

func (m *fakeMailer) SendMemberInviteEmail(to, contestName string, role models.Role, verifyLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.invites = append(m.invites, sentInvite{To: to, ContestName: contestName, Role: role, VerifyLink: verifyLink})
	return nil
}

func (m *fakeMailer) sent() []sentInvite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentInvite(nil), m.invites...)
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*repositories.SignInToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*repositories.SignInToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *repositories.SignInToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *fakeTokenRepo) GetByID(ctx context.Context, id string) (*repositories.SignInToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, repositories.ErrSignInTokenNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return repositories.ErrSignInTokenNotFound
	}
	delete(r.tokens, id)
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeCriterionRepo struct {
	mu       sync.Mutex
	criteria map[string]*models.Criterion
}

func newFakeCriterionRepo() *fakeCriterionRepo {
	return &fakeCriterionRepo{criteria: make(map[string]*models.Criterion)}
}

func (r *fakeCriterionRepo) Create(ctx context.Context, criterion *models.Criterion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *criterion
	r.criteria[criterion.ID] = &copied
	return nil
}

func (r *fakeCriterionRepo) GetByID(ctx context.Context, id string) (*models.Criterion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	criterion, ok := r.criteria[id]
	if !ok {
		return nil, repositories.ErrCriterionNotFound
	}
	copied := *criterion
	return &copied, nil
}

func (r *fakeCriterionRepo) ListByContestID(ctx context.Context, contestID string) ([]*models.Criterion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Criterion
	for _, criterion := range r.criteria {
		if criterion.ContestID == contestID {
			copied := *criterion
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCriterionRepo) Update(ctx context.Context, criterion *models.Criterion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.criteria[criterion.ID]; !ok {
		return repositories.ErrCriterionNotFound
	}
	copied := *criterion
	r.criteria[criterion.ID] = &copied
	return nil
}

func (r *fakeCriterionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.criteria[id]; !ok {
		return repositories.ErrCriterionNotFound
	}
	delete(r.criteria, id)
	return nil
}

type fakeScoreRepo struct {
	mu     sync.Mutex
	scores map[repositories.ScoreKey]*models.Score
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[repositories.ScoreKey]*models.Score)}
}

func (r *fakeScoreRepo) Upsert(ctx context.Context, score *models.Score) (*models.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repositories.ScoreKey{JudgeID: score.JudgeID, ContestantID: score.ContestantID, CriteriaID: score.CriteriaID}
	stored, ok := r.scores[key]
	if !ok {
		copied := *score
		r.scores[key] = &copied
		result := copied
		return &result, nil
	}
	stored.Value = score.Value
	stored.Comment = score.Comment
	result := *stored
	return &result, nil
}

func (r *fakeScoreRepo) Get(ctx context.Context, key repositories.ScoreKey) (*models.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[key]
	if !ok {
		return &models.Score{
			JudgeID:      key.JudgeID,
			ContestantID: key.ContestantID,
			CriteriaID:   key.CriteriaID,
		}, nil
	}
	copied := *score
	return &copied, nil
}

func (r *fakeScoreRepo) MarkSubmitted(ctx context.Context, key repositories.ScoreKey, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[key]
	if !ok || score.Value == nil {
		return repositories.ErrScoreNotSubmittable
	}
	submittedAt := at
	score.SubmittedAt = &submittedAt
	return nil
}

func (r *fakeScoreRepo) Delete(ctx context.Context, key repositories.ScoreKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scores[key]; !ok {
		return false, nil
	}
	delete(r.scores, key)
	return true, nil
}

func (r *fakeScoreRepo) ListByContestID(ctx context.Context, contestID string) ([]*models.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Score
	for _, score := range r.scores {
		if score.ContestID == contestID {
			copied := *score
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeContestantRepo struct {
	mu          sync.Mutex
	contestants map[string]*models.Contestant
}

func newFakeContestantRepo() *fakeContestantRepo {
	return &fakeContestantRepo{contestants: make(map[string]*models.Contestant)}
}

func (r *fakeContestantRepo) Create(ctx context.Context, contestant *models.Contestant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *contestant
	r.contestants[contestant.ID] = &copied
	return nil
}

func (r *fakeContestantRepo) GetByID(ctx context.Context, id string) (*models.Contestant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contestant, ok := r.contestants[id]
	if !ok {
		return nil, repositories.ErrContestantNotFound
	}
	copied := *contestant
	return &copied, nil
}

func (r *fakeContestantRepo) ListByContestID(ctx context.Context, contestID string) ([]*models.Contestant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Contestant
	for _, contestant := range r.contestants {
		if contestant.ContestID == contestID {
			copied := *contestant
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeContestantRepo) Update(ctx context.Context, contestant *models.Contestant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contestants[contestant.ID]; !ok {
		return repositories.ErrContestantNotFound
	}
	copied := *contestant
	r.contestants[contestant.ID] = &copied
	return nil
}

func (r *fakeContestantRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contestants[id]; !ok {
		return repositories.ErrContestantNotFound
	}
	delete(r.contestants, id)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
}

func (p *fakePublisher) Publish(ctx context.Context, contestID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, contestID)
	return nil
}

// fakeUploader складывает загруженные файлы в память.
type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key), ETag: "fake-etag"}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://files.example/" + key
}

func (u *fakeUploader) uploaded(key string) []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads[key]
}
