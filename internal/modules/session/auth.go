// README: Observable authentication state; login/logout drive location tracking.
package session

import "sync"

// AuthState is the signed-in identity. Both fields must be set for the
// session to count as authenticated.
type AuthState struct {
	UserID string
	Token  string
}

func (a AuthState) Authenticated() bool {
	return a.UserID != "" && a.Token != ""
}

// Auth holds the current AuthState and fans changes out to subscribers.
type Auth struct {
	mu    sync.Mutex
	state AuthState
	subs  map[int]chan AuthState
	next  int
}

func NewAuth() *Auth {
	return &Auth{subs: make(map[int]chan AuthState)}
}

func (a *Auth) Current() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Token implements apiclient.TokenSource.
func (a *Auth) Token() string {
	return a.Current().Token
}

// Set replaces the state (login, token refresh) and notifies subscribers.
func (a *Auth) Set(s AuthState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
	for _, ch := range a.subs {
		publish(ch, s)
	}
}

// Clear signs out.
func (a *Auth) Clear() {
	a.Set(AuthState{})
}

// Subscribe returns a channel that immediately carries the current state and
// then every later change. Slow readers only see the latest state. The
// returned func unsubscribes and closes the channel.
func (a *Auth) Subscribe() (<-chan AuthState, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan AuthState, 1)
	id := a.next
	a.next++
	a.subs[id] = ch
	ch <- a.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.subs, id)
			close(ch)
		})
	}
}

// publish replaces any unread value so the channel always holds the newest state.
func publish(ch chan AuthState, s AuthState) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}
