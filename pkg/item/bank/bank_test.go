package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"mercator-hq/itemengine/internal/qti/testitems"
	"mercator-hq/itemengine/pkg/item"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
)

func TestBank_AddGet(t *testing.T) {
	b := New()

	def, err := b.Add(testitems.Bytes(testitems.Choice), testitems.Choice)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if def.Identifier() != "choice" {
		t.Errorf("Identifier() = %q, want choice", def.Identifier())
	}

	got, ok := b.Get("choice")
	if !ok || got != def {
		t.Error("Get() did not return the stored definition")
	}
	if _, ok := b.Get("missing"); ok {
		t.Error("Get(missing) found an item")
	}
}

func TestBank_AddErrors(t *testing.T) {
	b := New()
	if _, err := b.Add(testitems.Bytes(testitems.Choice), "a.xml"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	if _, err := b.Add(testitems.Bytes(testitems.Choice), "b.xml"); !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateItem", err)
	}
	if _, err := b.Add([]byte("<nope"), "broken.xml"); !qtiErrors.IsParseError(err) {
		t.Errorf("Add(broken) error = %v, want parse error", err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestBank_PutRemoveIdentifiers(t *testing.T) {
	b := New()
	for _, name := range []string{testitems.Template, testitems.Adaptive, testitems.Choice} {
		def, err := item.Compile(testitems.Bytes(name))
		if err != nil {
			t.Fatalf("Compile(%s) failed: %v", name, err)
		}
		b.Put(def)
	}

	if got := fmt.Sprint(b.Identifiers()); got != "[adaptive choice template]" {
		t.Errorf("Identifiers() = %s", got)
	}
	if !b.Remove("adaptive") {
		t.Error("Remove(adaptive) = false")
	}
	if b.Remove("adaptive") {
		t.Error("second Remove(adaptive) = true")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBank_NewSession(t *testing.T) {
	b := New(item.WithSeed(3))
	if _, err := b.Add(testitems.Bytes(testitems.Template), testitems.Template); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	if _, err := b.NewSession("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("NewSession(missing) error = %v, want ErrItemNotFound", err)
	}

	s, err := b.NewSession("template", item.WithResponses(map[string]any{"RESPONSE": 8}))
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	res, err := s.SubmitAttempt(context.Background(), true)
	if err != nil {
		t.Fatalf("SubmitAttempt() failed: %v", err)
	}
	if res.Score == nil || *res.Score != 1 {
		t.Errorf("Score = %v, want 1", res.Score)
	}
}

func TestBank_ConcurrentSessions(t *testing.T) {
	b := New()
	if _, err := b.Add(testitems.Bytes(testitems.Adaptive), testitems.Adaptive); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			door := []string{"DoorA", "DoorB", "DoorC"}[i%3]
			s, err := b.NewSession("adaptive", item.WithResponses(map[string]any{"RESPONSE": door}))
			if err != nil {
				errs <- err
				return
			}
			res, err := s.SubmitAttempt(context.Background(), true)
			if err != nil {
				errs <- err
				return
			}
			if res.NumAttempts != 1 {
				errs <- fmt.Errorf("session %d: NumAttempts = %d", i, res.NumAttempts)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
