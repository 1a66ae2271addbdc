package chat

import (
	"errors"
	"sync"
	"testing"
)

func TestDirectoryCreateAndGet(t *testing.T) {
	dir := NewDirectory()

	ch, err := dir.Create("#general", "talk", DefaultOptions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, ok := dir.Get("#general")
	if !ok || got != ch {
		t.Fatal("created channel should resolve by internal name")
	}

	if _, err := dir.Create("#general", "", DefaultOptions()); !errors.Is(err, ErrChannelExists) {
		t.Fatalf("duplicate create = %v, want ErrChannelExists", err)
	}
}

func TestDirectoryCreateInstanceNames(t *testing.T) {
	dir := NewDirectory()

	spec, err := dir.CreateInstance(InstanceSpectator, 42, "watching")
	if err != nil {
		t.Fatalf("create spectator instance: %v", err)
	}
	multi, err := dir.CreateInstance(InstanceMultiplayer, 7, "lobby")
	if err != nil {
		t.Fatalf("create multiplayer instance: %v", err)
	}

	if spec.Name() != "#spec_42" || spec.DisplayName() != "#spectator" {
		t.Fatalf("spectator instance: name=%q display=%q", spec.Name(), spec.DisplayName())
	}
	if multi.Name() != "#multi_7" || multi.DisplayName() != "#multiplayer" {
		t.Fatalf("multiplayer instance: name=%q display=%q", multi.Name(), multi.DisplayName())
	}
	if !spec.IsInstance() || spec.AutoJoin() {
		t.Fatal("instance channels must be ephemeral and not auto-joined")
	}
}

func TestInstanceTeardownOnLastLeave(t *testing.T) {
	dir := NewDirectory()
	ch, err := dir.CreateInstance(InstanceMultiplayer, 1, "lobby")
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}

	alice := newFakeSession(1, "alice")
	mustJoin(t, ch, alice)

	if err := ch.Leave(alice); err != nil {
		t.Fatalf("last leave: %v", err)
	}

	if _, ok := dir.Get("#multi_1"); ok {
		t.Fatal("empty instance channel must be removed from the directory")
	}
	if err := ch.Join(newFakeSession(2, "bob")); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("join after teardown = %v, want ErrChannelClosed", err)
	}
	if err := ch.Leave(alice); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("leave after teardown = %v, want ErrChannelClosed", err)
	}
}

func TestInstanceSurvivesWhileMembersRemain(t *testing.T) {
	dir := NewDirectory()
	ch, _ := dir.CreateInstance(InstanceMultiplayer, 2, "lobby")

	alice := newFakeSession(1, "alice")
	bob := newFakeSession(2, "bob")
	mustJoin(t, ch, alice)
	mustJoin(t, ch, bob)

	if err := ch.Leave(alice); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := dir.Get("#multi_2"); !ok {
		t.Fatal("instance with remaining members must stay registered")
	}
}

func TestNonInstanceStaysWhenEmpty(t *testing.T) {
	dir := NewDirectory()
	ch, _ := dir.Create("#general", "talk", DefaultOptions())

	alice := newFakeSession(1, "alice")
	mustJoin(t, ch, alice)
	if err := ch.Leave(alice); err != nil {
		t.Fatalf("leave: %v", err)
	}

	got, ok := dir.Get("#general")
	if !ok {
		t.Fatal("non-instance channel must remain after last member leaves")
	}
	if got.Summary().Members != 0 {
		t.Fatalf("member count = %d, want 0", got.Summary().Members)
	}
	// And it keeps working.
	mustJoin(t, got, newFakeSession(2, "bob"))
}

func TestAdministrativeRemove(t *testing.T) {
	dir := NewDirectory()
	ch, _ := dir.Create("#staff", "private", DefaultOptions())

	if err := dir.Remove(ch); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := dir.Get("#staff"); ok {
		t.Fatal("removed channel still resolvable")
	}
	if err := ch.Join(newFakeSession(1, "alice")); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("join after remove = %v, want ErrChannelClosed", err)
	}
	if err := dir.Remove(ch); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("second remove = %v, want ErrChannelNotFound", err)
	}
}

func TestSummariesSnapshot(t *testing.T) {
	dir := NewDirectory()
	a, _ := dir.Create("#general", "talk", DefaultOptions())
	dir.Create("#spec_9", "", Options{ReadLevel: LevelNormal, WriteLevel: LevelNormal, Instance: true})
	mustJoin(t, a, newFakeSession(1, "alice"))

	sums := dir.Summaries()
	if len(sums) != 2 {
		t.Fatalf("got %d summaries, want 2", len(sums))
	}
	if sums[0].Name != "#general" || sums[0].Members != 1 {
		t.Fatalf("unexpected first summary: %+v", sums[0])
	}
	if sums[1].Name != "#spectator" {
		t.Fatalf("instance summary should use the display alias, got %+v", sums[1])
	}
}

// TestJoinRacesInstanceTeardown drives the last-member departure of an
// instance channel against concurrent joins. Exactly one outcome is
// allowed per round: the joiner lands as sole surviving member and the
// channel stays registered, or the join is rejected with ErrChannelClosed
// and the channel is gone. A join must never be silently lost.
func TestJoinRacesInstanceTeardown(t *testing.T) {
	for round := 0; round < 200; round++ {
		dir := NewDirectory()
		ch, err := dir.CreateInstance(InstanceSpectator, int64(round), "")
		if err != nil {
			t.Fatalf("create instance: %v", err)
		}

		leaver := newFakeSession(1, "leaver")
		joiner := newFakeSession(2, "joiner")
		mustJoin(t, ch, leaver)

		var joinErr, leaveErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			joinErr = ch.Join(joiner)
		}()
		go func() {
			defer wg.Done()
			leaveErr = ch.Leave(leaver)
		}()
		wg.Wait()

		if leaveErr != nil {
			t.Fatalf("round %d: leave: %v", round, leaveErr)
		}

		_, registered := dir.Get(ch.Name())
		switch {
		case joinErr == nil:
			if !registered {
				t.Fatalf("round %d: join succeeded but channel was torn down", round)
			}
			if !ch.Contains(joiner) {
				t.Fatalf("round %d: successful join not reflected in membership", round)
			}
		case errors.Is(joinErr, ErrChannelClosed):
			if registered {
				t.Fatalf("round %d: join rejected but channel still registered", round)
			}
		default:
			t.Fatalf("round %d: unexpected join error: %v", round, joinErr)
		}
	}
}

func TestConcurrentJoinLeaveChurn(t *testing.T) {
	dir := NewDirectory()
	ch, _ := dir.Create("#general", "", DefaultOptions())

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id int64) {
			defer wg.Done()
			s := newFakeSession(SessionID(id), "s")
			if err := ch.Join(s); err != nil {
				t.Errorf("join %d: %v", id, err)
				return
			}
			ch.Broadcast(s, []byte("x"), false)
			if id%2 == 0 {
				if err := ch.Leave(s); err != nil {
					t.Errorf("leave %d: %v", id, err)
				}
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if got := ch.Summary().Members; got != n/2 {
		t.Fatalf("member count after churn = %d, want %d", got, n/2)
	}
}
