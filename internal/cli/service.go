package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/idilsaglam/tada/internal/api"
	"github.com/idilsaglam/tada/internal/auth"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/state"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
)

// service picks the remote implementation the config asks for.
func (a *app) service() (state.Service, error) {
	if a.cfg.Backend == config.BackendFile {
		a.log.WithField("path", a.cfg.DataFile).Debug("using file backend")
		return jsonstore.New(a.cfg.DataFile, a.cfg.UserID), nil
	}

	opts := []api.Option{
		api.WithTimeout(a.cfg.Timeout),
		api.WithLogger(a.log),
	}
	ti, err := auth.Get(a.dir)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if ti != nil {
		if ti.Expired(time.Now()) {
			a.log.WithField("source", ti.Source).Warn("token expired, sending it anyway")
		}
		opts = append(opts, api.WithToken(ti.Token))
	}
	client, err := api.NewClient(a.cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// openStore builds a store over the configured service. The caller closes it.
func (a *app) openStore() (*state.Store, error) {
	svc, err := a.service()
	if err != nil {
		return nil, err
	}
	return state.New(svc, a.cfg.UserID,
		state.WithErrorWindow(a.cfg.ErrorWindow),
		state.WithBulkLimit(a.cfg.BulkLimit),
		state.WithLogger(a.log),
	), nil
}

// loadedStore is openStore followed by a full fetch.
func (a *app) loadedStore(ctx context.Context) (*state.Store, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if err := s.FetchAll(ctx); err != nil {
		s.Close()
		return nil, describe(err)
	}
	return s, nil
}

// describe prefixes sync failures with their user-facing message.
func describe(err error) error {
	if kind := state.KindOf(err); kind != model.ErrNone {
		return fmt.Errorf("%s: %w", kind.Message(), err)
	}
	return err
}

// todoAt resolves a 1-based index over the full collection.
func todoAt(todos []model.Todo, arg string) (model.Todo, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Todo{}, usageErrorf("not a number: %s", arg)
	}
	if n < 1 || n > len(todos) {
		return model.Todo{}, &usageError{
			msg:  fmt.Sprintf("index out of range: have %d, got %d", len(todos), n),
			hint: "Hint: run `todo ls --plain` to see valid indexes",
		}
	}
	return todos[n-1], nil
}
