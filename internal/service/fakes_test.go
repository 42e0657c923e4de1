package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/rating"
	"github.com/mehdibennis/cinema/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. It enforces
// the same unique and foreign key rules the schema does.
type memStore struct {
	mu         sync.Mutex
	seq        uint64
	users      map[uint64]model.User
	authors    map[uint64]model.Author
	films      map[uint64]model.Film
	spectators map[uint64]model.Spectator
	filmRevs   map[uint64]model.FilmReview
	authorRevs map[uint64]model.AuthorReview
	favorites  map[[2]uint64]time.Time
	tokens     map[string]memToken
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uint64]model.User{},
		authors:    map[uint64]model.Author{},
		films:      map[uint64]model.Film{},
		spectators: map[uint64]model.Spectator{},
		filmRevs:   map[uint64]model.FilmReview{},
		authorRevs: map[uint64]model.AuthorReview{},
		favorites:  map[[2]uint64]time.Time{},
		tokens:     map[string]memToken{},
	}
}

func (m *memStore) next() uint64 { m.seq++; return m.seq }

// seed helpers

func (m *memStore) addUser(role model.Role, name string) model.User {
	u := model.User{Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	if err := (memUsers{m}).Create(context.Background(), &u); err != nil {
		panic(err)
	}
	return u
}

func (m *memStore) authorOf(userID uint64) model.Author {
	a, err := memAuthors{m}.GetByUserID(context.Background(), userID)
	if err != nil {
		panic(err)
	}
	return a
}

func (m *memStore) spectatorOf(userID uint64) model.Spectator {
	sp, err := memSpectators{m}.GetByUserID(context.Background(), userID)
	if err != nil {
		panic(err)
	}
	return sp
}

func (m *memStore) addFilm(authorID uint64, title string, status model.FilmStatus) model.Film {
	f := model.Film{Title: title, AuthorID: authorID, Status: status, Evaluation: model.EvaluationG, Source: model.SourceAdmin}
	if err := (memFilms{m}).Create(context.Background(), &f); err != nil {
		panic(err)
	}
	return f
}

// films

type memFilms struct{ m *memStore }

func (s memFilms) hydrate(f model.Film) model.Film {
	a := s.m.authors[f.AuthorID]
	f.AuthorUserID = a.UserID
	f.AuthorName = a.Username
	var sum, n int64
	for _, r := range s.m.filmRevs {
		if r.FilmID == f.ID {
			sum += int64(r.Rating)
			n++
		}
	}
	sm := rating.Summarize(sum, n)
	f.AverageRating, f.ReviewsCount = sm.Average, sm.Count
	return f
}

func (s memFilms) List(_ context.Context, flt model.FilmFilter) ([]model.Film, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Film
	for _, f := range s.m.films {
		if flt.PublishedOnly && f.Status != model.FilmPublished {
			continue
		}
		if flt.AuthorID != 0 && f.AuthorID != flt.AuthorID {
			continue
		}
		out = append(out, s.hydrate(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if flt.Offset < len(out) {
		out = out[flt.Offset:]
	} else {
		out = nil
	}
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, total, nil
}

func (s memFilms) GetByID(_ context.Context, id uint64) (model.Film, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f, ok := s.m.films[id]
	if !ok {
		return model.Film{}, repository.ErrNotFound
	}
	return s.hydrate(f), nil
}

func (s memFilms) Create(_ context.Context, f *model.Film) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.authors[f.AuthorID]; !ok {
		return repository.ErrMissingReference
	}
	f.ID = s.m.next()
	s.m.films[f.ID] = *f
	return nil
}

func (s memFilms) Update(_ context.Context, f *model.Film) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.films[f.ID]; !ok {
		return repository.ErrNotFound
	}
	s.m.films[f.ID] = *f
	return nil
}

func (s memFilms) SetStatus(_ context.Context, id uint64, st model.FilmStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f, ok := s.m.films[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.Status = st
	s.m.films[id] = f
	return nil
}

func (s memFilms) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.films[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.m.films, id)
	for rid, r := range s.m.filmRevs {
		if r.FilmID == id {
			delete(s.m.filmRevs, rid)
		}
	}
	return nil
}

// authors

type memAuthors struct{ m *memStore }

func (s memAuthors) hydrate(a model.Author) model.Author {
	var sum, n int64
	for _, r := range s.m.authorRevs {
		if r.AuthorID == a.ID {
			sum += int64(r.Rating)
			n++
		}
	}
	sm := rating.Summarize(sum, n)
	a.AverageRating, a.ReviewsCount = sm.Average, sm.Count
	return a
}

func (s memAuthors) List(_ context.Context, flt model.AuthorFilter) ([]model.Author, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Author
	for _, a := range s.m.authors {
		out = append(out, s.hydrate(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s memAuthors) GetByID(_ context.Context, id uint64) (model.Author, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.authors[id]
	if !ok {
		return model.Author{}, repository.ErrNotFound
	}
	return s.hydrate(a), nil
}

func (s memAuthors) GetByUserID(_ context.Context, userID uint64) (model.Author, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, a := range s.m.authors {
		if a.UserID == userID {
			return s.hydrate(a), nil
		}
	}
	return model.Author{}, repository.ErrNotFound
}

func (s memAuthors) Create(_ context.Context, a *model.Author) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[a.UserID]
	if !ok {
		return repository.ErrMissingReference
	}
	for _, x := range s.m.authors {
		if x.UserID == a.UserID {
			return repository.ErrDuplicate
		}
	}
	a.ID = s.m.next()
	a.Username = u.Username
	s.m.authors[a.ID] = *a
	return nil
}

func (s memAuthors) Update(_ context.Context, a *model.Author) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.authors[a.ID] = *a
	return nil
}

func (s memAuthors) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.authors[id]; !ok {
		return repository.ErrNotFound
	}
	for _, f := range s.m.films {
		if f.AuthorID == id {
			return repository.ErrProtected
		}
	}
	delete(s.m.authors, id)
	return nil
}

// reviews

type memReviews struct{ m *memStore }

func (s memReviews) CreateFilmReview(_ context.Context, userID, filmID uint64, r int, comment string) (model.FilmReview, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.films[filmID]; !ok {
		return model.FilmReview{}, repository.ErrMissingReference
	}
	for _, x := range s.m.filmRevs {
		if x.UserID == userID && x.FilmID == filmID {
			return model.FilmReview{}, repository.ErrDuplicate
		}
	}
	rv := model.FilmReview{ID: s.m.next(), UserID: userID, Username: s.m.users[userID].Username, FilmID: filmID, Rating: r, Comment: comment, CreatedAt: time.Now()}
	s.m.filmRevs[rv.ID] = rv
	return rv, nil
}

func (s memReviews) GetFilmReview(_ context.Context, id uint64) (model.FilmReview, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rv, ok := s.m.filmRevs[id]
	if !ok {
		return model.FilmReview{}, repository.ErrNotFound
	}
	return rv, nil
}

func (s memReviews) ListFilmReviews(_ context.Context, filmID uint64, publishedOnly bool, limit, offset int) ([]model.FilmReview, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.FilmReview
	for _, rv := range s.m.filmRevs {
		if filmID != 0 && rv.FilmID != filmID {
			continue
		}
		if publishedOnly && s.m.films[rv.FilmID].Status != model.FilmPublished {
			continue
		}
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s memReviews) DeleteFilmReview(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.filmRevs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.m.filmRevs, id)
	return nil
}

func (s memReviews) CreateAuthorReview(_ context.Context, userID, authorID uint64, r int, comment string) (model.AuthorReview, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.authors[authorID]; !ok {
		return model.AuthorReview{}, repository.ErrMissingReference
	}
	for _, x := range s.m.authorRevs {
		if x.UserID == userID && x.AuthorID == authorID {
			return model.AuthorReview{}, repository.ErrDuplicate
		}
	}
	rv := model.AuthorReview{ID: s.m.next(), UserID: userID, Username: s.m.users[userID].Username, AuthorID: authorID, Rating: r, Comment: comment, CreatedAt: time.Now()}
	s.m.authorRevs[rv.ID] = rv
	return rv, nil
}

func (s memReviews) GetAuthorReview(_ context.Context, id uint64) (model.AuthorReview, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rv, ok := s.m.authorRevs[id]
	if !ok {
		return model.AuthorReview{}, repository.ErrNotFound
	}
	return rv, nil
}

func (s memReviews) ListAuthorReviews(_ context.Context, authorID uint64, limit, offset int) ([]model.AuthorReview, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.AuthorReview
	for _, rv := range s.m.authorRevs {
		if authorID == 0 || rv.AuthorID == authorID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s memReviews) DeleteAuthorReview(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.authorRevs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.m.authorRevs, id)
	return nil
}

// spectators

type memSpectators struct{ m *memStore }

func (s memSpectators) GetByID(_ context.Context, id uint64) (model.Spectator, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sp, ok := s.m.spectators[id]
	if !ok {
		return model.Spectator{}, repository.ErrNotFound
	}
	return sp, nil
}

func (s memSpectators) GetByUserID(_ context.Context, userID uint64) (model.Spectator, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, sp := range s.m.spectators {
		if sp.UserID == userID {
			return sp, nil
		}
	}
	return model.Spectator{}, repository.ErrNotFound
}

func (s memSpectators) List(_ context.Context, limit, offset int) ([]model.Spectator, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Spectator
	for _, sp := range s.m.spectators {
		out = append(out, sp)
	}
	return out, int64(len(out)), nil
}

func (s memSpectators) Update(_ context.Context, sp *model.Spectator) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.spectators[sp.ID] = *sp
	return nil
}

func (s memSpectators) AddFavorite(_ context.Context, spectatorID, filmID uint64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	k := [2]uint64{spectatorID, filmID}
	if _, ok := s.m.favorites[k]; ok {
		return false, nil
	}
	s.m.favorites[k] = time.Now().Add(time.Duration(len(s.m.favorites)) * time.Millisecond)
	return true, nil
}

func (s memSpectators) RemoveFavorite(_ context.Context, spectatorID, filmID uint64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	k := [2]uint64{spectatorID, filmID}
	if _, ok := s.m.favorites[k]; !ok {
		return false, nil
	}
	delete(s.m.favorites, k)
	return true, nil
}

func (s memSpectators) ListFavorites(_ context.Context, spectatorID uint64) ([]model.Favorite, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Favorite
	for k, at := range s.m.favorites {
		if k[0] == spectatorID {
			out = append(out, model.Favorite{Film: memFilms{s.m}.hydrate(s.m.films[k[1]]), AddedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

// users and tokens

type memUsers struct{ m *memStore }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, x := range s.m.users {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
		if x.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	u.ID = s.m.next()
	u.IsActive = true
	s.m.users[u.ID] = *u
	switch u.Role {
	case model.RoleSpectator:
		id := s.m.next()
		s.m.spectators[id] = model.Spectator{ID: id, UserID: u.ID, Username: u.Username, Email: u.Email}
	case model.RoleAuthor:
		id := s.m.next()
		s.m.authors[id] = model.Author{ID: id, UserID: u.ID, Username: u.Username, Email: u.Email, Source: model.SourceAdmin}
	}
	return nil
}

func (s memUsers) GetByLogin(_ context.Context, login string) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s memUsers) List(_ context.Context, limit, offset int) ([]model.User, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.User
	for _, u := range s.m.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (s memUsers) Delete(_ context.Context, id uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return repository.ErrNotFound
	}
	for aid, a := range s.m.authors {
		if a.UserID != id {
			continue
		}
		for _, f := range s.m.films {
			if f.AuthorID == aid {
				return repository.ErrProtected
			}
		}
		delete(s.m.authors, aid)
	}
	delete(s.m.users, id)
	return nil
}

type memTokens struct{ m *memStore }

func (s memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.tokens[hash] = memToken{userID: userID, exp: exp}
	return nil
}

func (s memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tokens[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (s memTokens) RevokeByHash(_ context.Context, hash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if t, ok := s.m.tokens[hash]; ok {
		t.revoked = true
		s.m.tokens[hash] = t
	}
	return nil
}

func (s memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for h, t := range s.m.tokens {
		if t.userID == userID {
			t.revoked = true
			s.m.tokens[h] = t
		}
	}
	return nil
}

// side channels

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingInvalidator struct {
	mu     sync.Mutex
	scopes []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, scopes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, scopes...)
}

// fixture wires every service onto one memStore.
type fixture struct {
	store      *memStore
	events     *recordingPublisher
	inv        *recordingInvalidator
	films      *FilmService
	authors    *AuthorService
	reviews    *ReviewService
	spectators *SpectatorService
	users      *UserService
}

func newFixture() *fixture {
	m := newMemStore()
	ev := &recordingPublisher{}
	inv := &recordingInvalidator{}
	log := zerolog.Nop()
	return &fixture{
		store:      m,
		events:     ev,
		inv:        inv,
		films:      NewFilmService(memFilms{m}, memAuthors{m}, ev, inv, log),
		authors:    NewAuthorService(memAuthors{m}, memFilms{m}, memUsers{m}, ev, inv, log),
		reviews:    NewReviewService(memReviews{m}, memFilms{m}, memAuthors{m}, ev, inv, log),
		spectators: NewSpectatorService(memSpectators{m}, memFilms{m}, ev, inv, log),
		users:      NewUserService(memUsers{m}, 4, inv, log),
	}
}

func subjectOf(u model.User) policy.Subject {
	return policy.Subject{UserID: u.ID, Role: u.Role}
}
