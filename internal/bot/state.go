package bot

import (
	"sync"
	"time"

	"stayhaven/internal/dashboard"
	"stayhaven/internal/model"
	"stayhaven/internal/navigation"
	"stayhaven/internal/search"
	"stayhaven/internal/selection"
)

type dialogStep string

const (
	stepNone           dialogStep = "none"
	stepSearchCity     dialogStep = "search_city"
	stepSearchCheckIn  dialogStep = "search_checkin"
	stepSearchCheckOut dialogStep = "search_checkout"
	stepSearchGuests   dialogStep = "search_guests"
	stepSelCheckIn     dialogStep = "sel_checkin"
	stepSelCheckOut    dialogStep = "sel_checkout"
	stepLoginUser      dialogStep = "login_user"
	stepLoginPassword  dialogStep = "login_password"
	stepProfileField   dialogStep = "profile_field"
)

// chatState is everything the bot remembers about one user between updates.
// mu guards the fields; it is never held across a backend call.
type chatState struct {
	mu sync.Mutex

	Step dialogStep
	Nav  navigation.State

	Search    *search.Builder
	Hotels    []model.Hotel
	Selection *selection.Selection

	// pending range while a calendar is open
	PickIn *time.Time

	LoginUser    string
	ProfileField string

	Dashboard      *dashboard.Dashboard
	DashboardToken string
}

func (s *chatState) lock()   { s.mu.Lock() }
func (s *chatState) unlock() { s.mu.Unlock() }

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*chatState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*chatState)}
}

func (s *stateStore) get(userID int64) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &chatState{Step: stepNone, Search: search.NewBuilder()}
		st.Nav.Navigate(navigation.RouteHome)
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
