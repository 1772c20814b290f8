package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"dualbase/internal/dbtarget"
)

type fakeHandle struct {
	pingErr  error
	closeErr error
	closed   bool
}

func (f *fakeHandle) Ping(context.Context) error { return f.pingErr }

func (f *fakeHandle) Close(context.Context) error {
	f.closed = true
	return f.closeErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeOpeners(pg, mg *fakeHandle, pgOpenErr, mgOpenErr error) map[dbtarget.Target]opener {
	return map[dbtarget.Target]opener{
		dbtarget.PostgreSQL: func(context.Context) (Handle, error) {
			if pgOpenErr != nil {
				return nil, pgOpenErr
			}
			return pg, nil
		},
		dbtarget.MongoDB: func(context.Context) (Handle, error) {
			if mgOpenErr != nil {
				return nil, mgOpenErr
			}
			return mg, nil
		},
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	t.Run("handles available after initialize", func(t *testing.T) {
		t.Parallel()

		reg := newWithOpeners(discardLogger(), fakeOpeners(&fakeHandle{}, &fakeHandle{}, nil, nil))
		if err := reg.Initialize(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, target := range dbtarget.All() {
			handle, err := reg.Handle(target)
			if err != nil {
				t.Fatalf("expected handle for %s, got %v", target, err)
			}
			if handle == nil {
				t.Fatalf("expected non-nil handle for %s", target)
			}
		}
	})

	t.Run("fails fast and closes opened handles", func(t *testing.T) {
		t.Parallel()

		pg := &fakeHandle{}
		reg := newWithOpeners(discardLogger(), fakeOpeners(pg, nil, nil, errors.New("mongo down")))

		err := reg.Initialize(context.Background())
		if err == nil {
			t.Fatal("expected initialization error")
		}
		var initErr *InitializationError
		if !errors.As(err, &initErr) {
			t.Fatalf("expected InitializationError, got %T", err)
		}
		if initErr.Target != dbtarget.MongoDB {
			t.Errorf("expected failing target mongodb, got %s", initErr.Target)
		}
		if !pg.closed {
			t.Error("expected already-opened postgres handle to be closed")
		}
		if _, err := reg.Handle(dbtarget.PostgreSQL); !errors.Is(err, ErrConnectionUnavailable) {
			t.Errorf("expected ErrConnectionUnavailable, got %v", err)
		}
	})

	t.Run("ping failure during init aborts startup", func(t *testing.T) {
		t.Parallel()

		pg := &fakeHandle{pingErr: errors.New("refused")}
		reg := newWithOpeners(discardLogger(), fakeOpeners(pg, &fakeHandle{}, nil, nil))

		if err := reg.Initialize(context.Background()); err == nil {
			t.Fatal("expected initialization error")
		}
		if !pg.closed {
			t.Error("expected unhealthy handle to be closed")
		}
	})
}

func TestHandleLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("unavailable before initialize and after shutdown", func(t *testing.T) {
		t.Parallel()

		reg := newWithOpeners(discardLogger(), fakeOpeners(&fakeHandle{}, &fakeHandle{}, nil, nil))
		if _, err := reg.Handle(dbtarget.PostgreSQL); !errors.Is(err, ErrConnectionUnavailable) {
			t.Fatalf("expected ErrConnectionUnavailable before initialize, got %v", err)
		}

		if err := reg.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}
		reg.Shutdown(context.Background())

		if _, err := reg.Handle(dbtarget.MongoDB); !errors.Is(err, ErrConnectionUnavailable) {
			t.Fatalf("expected ErrConnectionUnavailable after shutdown, got %v", err)
		}
	})

	t.Run("shutdown closes every handle even when one fails", func(t *testing.T) {
		t.Parallel()

		pg := &fakeHandle{closeErr: errors.New("broken pipe")}
		mg := &fakeHandle{}
		reg := newWithOpeners(discardLogger(), fakeOpeners(pg, mg, nil, nil))
		if err := reg.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}

		reg.Shutdown(context.Background())
		if !pg.closed || !mg.closed {
			t.Error("expected both handles to see a close attempt")
		}
	})

	t.Run("unknown target is rejected", func(t *testing.T) {
		t.Parallel()

		reg := newWithOpeners(discardLogger(), fakeOpeners(&fakeHandle{}, &fakeHandle{}, nil, nil))
		_, err := reg.Handle(dbtarget.Target("cassandra"))
		var unsupported *dbtarget.UnsupportedTargetError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected UnsupportedTargetError, got %v", err)
		}
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("probe failure is false not error", func(t *testing.T) {
		t.Parallel()

		pg := &fakeHandle{}
		mg := &fakeHandle{}
		reg := newWithOpeners(discardLogger(), fakeOpeners(pg, mg, nil, nil))
		if err := reg.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}
		// Initialize pings succeed; degrade mongo afterwards.
		mg.pingErr = errors.New("timeout")

		if !reg.Healthy(context.Background(), dbtarget.PostgreSQL) {
			t.Error("expected postgresql to be healthy")
		}
		if reg.Healthy(context.Background(), dbtarget.MongoDB) {
			t.Error("expected mongodb to be unhealthy")
		}
	})

	t.Run("all health covers every target", func(t *testing.T) {
		t.Parallel()

		reg := newWithOpeners(discardLogger(), fakeOpeners(&fakeHandle{}, &fakeHandle{}, nil, nil))
		if err := reg.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}

		health := reg.AllHealth(context.Background())
		if len(health) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(health))
		}
		for target, ok := range health {
			if !ok {
				t.Errorf("expected %s to be healthy", target)
			}
		}
	})

	t.Run("uninitialized registry reports false", func(t *testing.T) {
		t.Parallel()

		reg := newWithOpeners(discardLogger(), fakeOpeners(&fakeHandle{}, &fakeHandle{}, nil, nil))
		if reg.Healthy(context.Background(), dbtarget.PostgreSQL) {
			t.Error("expected false before initialize")
		}
	})
}
