package activemember

import (
	"sync"
	"testing"

	"famhealth/internal/models"
	"famhealth/internal/session"
)

func newRegistry(t *testing.T) (*Registry, *session.Provider) {
	t.Helper()
	p := session.NewProvider()
	r := NewRegistry(p)
	t.Cleanup(r.Close)
	return r, p
}

// signIn publishes a new session and returns its store
func signIn(t *testing.T, r *Registry, p *session.Provider, sess models.Session) *Store {
	t.Helper()
	p.Publish(session.Event{Kind: session.SignedIn, Session: sess})
	store, ok := r.For(sess)
	if !ok {
		t.Fatalf("For(%s) after sign-in reported no session", sess.ID)
	}
	return store
}

func TestDefaultSelectionOnSignIn(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}

	if _, ok := r.For(sess); ok {
		t.Fatal("no store should exist before a session is present")
	}

	p.Publish(session.Event{Kind: session.SignedIn, Session: sess})

	if _, ok := r.stores["s1"]; !ok {
		t.Fatal("store not created on sign-in")
	}
	store, _ := r.For(sess)
	got, ok := store.Get()
	want := models.ActiveMember{ID: "u1", Type: models.MemberTypeUser, Label: "Self"}
	if !ok || got != want {
		t.Fatalf("Get() = %+v, %v; want %+v", got, ok, want)
	}
}

func TestSetPersistsAcrossRefreshes(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}
	p.Publish(session.Event{Kind: session.SignedIn, Session: sess})

	store, _ := r.For(sess)
	mom := models.ActiveMember{ID: "fam1", Type: models.MemberTypeFamily, Label: "Mom"}
	store.Set(mom)

	for i := 0; i < 5; i++ {
		p.Publish(session.Event{Kind: session.Refreshed, Session: sess})
		r.For(sess)
	}

	if got, _ := store.Get(); got != mom {
		t.Fatalf("selection clobbered: got %+v, want %+v", got, mom)
	}
}

func TestSetAcceptsUnknownIDs(t *testing.T) {
	r, p := newRegistry(t)
	store := signIn(t, r, p, models.Session{ID: "s1", UserID: "u1"})

	ghost := models.ActiveMember{ID: "does-not-exist", Type: models.MemberTypeFamily, Label: "Ghost"}
	store.Set(ghost)

	if got, _ := store.Get(); got != ghost {
		t.Fatalf("Get() = %+v, want %+v", got, ghost)
	}
}

func TestSignOutClearsSelection(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}
	store := signIn(t, r, p, sess)

	p.Publish(session.Event{Kind: session.SignedOut, Session: sess})

	if _, ok := store.Get(); ok {
		t.Error("selection should be absent after sign-out")
	}
	if _, ok := r.stores["s1"]; ok {
		t.Error("store should be dropped after sign-out")
	}
}

func TestForRefusesSignedOutSession(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}
	signIn(t, r, p, sess)

	// a request authenticated just before logout reaches For afterwards
	p.Publish(session.Event{Kind: session.SignedOut, Session: sess})

	if store, ok := r.For(sess); ok || store != nil {
		t.Errorf("For() after sign-out = %v, %v; want nil, false", store, ok)
	}
	if len(r.stores) != 0 {
		t.Errorf("registry holds %d stores after sign-out, want 0", len(r.stores))
	}
}

func TestForRacingSignOutLeavesNoOrphan(t *testing.T) {
	r, p := newRegistry(t)

	for i := 0; i < 50; i++ {
		sess := models.Session{ID: "s1", UserID: "u1"}
		p.Publish(session.Event{Kind: session.SignedIn, Session: sess})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.For(sess)
		}()
		go func() {
			defer wg.Done()
			p.Publish(session.Event{Kind: session.SignedOut, Session: sess})
		}()
		wg.Wait()

		r.mu.Lock()
		n := len(r.stores)
		r.mu.Unlock()
		if n != 0 {
			t.Fatalf("round %d: %d store(s) left after sign-out", i, n)
		}
	}
}

func TestDeleteActiveFallsBackToSelf(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}

	// session u1 becomes present
	p.Publish(session.Event{Kind: session.SignedIn, Session: sess})
	store, _ := r.For(sess)
	self := models.ActiveMember{ID: "u1", Type: models.MemberTypeUser, Label: "Self"}
	if got, _ := store.Get(); got != self {
		t.Fatalf("initial Get() = %+v, want %+v", got, self)
	}

	mom := models.ActiveMember{ID: "fam1", Type: models.MemberTypeFamily, Label: "Mom"}
	store.Set(mom)
	if got, _ := store.Get(); got != mom {
		t.Fatalf("Get() after Set = %+v, want %+v", got, mom)
	}

	if n := r.ResetMember("u1", "fam1"); n != 1 {
		t.Errorf("ResetMember() = %d, want 1", n)
	}
	if got, _ := store.Get(); got != self {
		t.Fatalf("Get() after delete = %+v, want %+v", got, self)
	}
}

func TestResetMemberLeavesOtherSelectionsAlone(t *testing.T) {
	r, p := newRegistry(t)

	phone := signIn(t, r, p, models.Session{ID: "phone", UserID: "u1"})
	tablet := signIn(t, r, p, models.Session{ID: "tablet", UserID: "u1"})
	other := signIn(t, r, p, models.Session{ID: "other", UserID: "u2"})

	mom := models.ActiveMember{ID: "fam1", Type: models.MemberTypeFamily, Label: "Mom"}
	dad := models.ActiveMember{ID: "fam2", Type: models.MemberTypeFamily, Label: "Dad"}
	phone.Set(mom)
	tablet.Set(dad)
	other.Set(mom)

	if n := r.ResetMember("u1", "fam1"); n != 1 {
		t.Errorf("ResetMember() = %d, want 1", n)
	}
	if got, _ := tablet.Get(); got != dad {
		t.Errorf("tablet selection changed to %+v", got)
	}
	if got, _ := other.Get(); got != mom {
		t.Errorf("other account's selection changed to %+v", got)
	}
}

func TestResetMemberIgnoresSelf(t *testing.T) {
	r, p := newRegistry(t)
	store := signIn(t, r, p, models.Session{ID: "s1", UserID: "u1"})

	if n := r.ResetMember("u1", "u1"); n != 0 {
		t.Errorf("ResetMember() on Self = %d, want 0", n)
	}
	if got, _ := store.Get(); !got.IsSelf() {
		t.Errorf("selection = %+v, want Self", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r, p := newRegistry(t)
	sess := models.Session{ID: "s1", UserID: "u1"}
	store := signIn(t, r, p, sess)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			store.Set(models.ActiveMember{ID: "fam1", Type: models.MemberTypeFamily, Label: "Mom"})
		}()
		go func() {
			defer wg.Done()
			p.Publish(session.Event{Kind: session.Refreshed, Session: sess})
		}()
		go func() {
			defer wg.Done()
			store.Get()
		}()
	}
	wg.Wait()

	if _, ok := store.Get(); !ok {
		t.Fatal("selection should be present")
	}
}
