package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockcycle/delay"
	"github.com/zerbitx/gnockcycle/spec"
)

type (
	// Lookup finds a mock by its exact METHOD:PATH key
	Lookup interface {
		Get(key string) (*spec.Mock, bool)
	}

	// Jitter computes the delay for a mock's timing parameters
	Jitter interface {
		Compute(avgMs, deviationMs float64) time.Duration
	}

	// Request is what the dispatcher needs from an inbound request
	Request struct {
		Method string
		Path   string
		Body   []byte
	}

	// Response is a composed mock reply
	Response struct {
		Key    string
		Status int
		Body   map[string]interface{}
		Delay  time.Duration
	}

	// Dispatcher matches requests to mocks and produces their delayed responses
	Dispatcher struct {
		lookup Lookup
		jitter Jitter
		now    func() time.Time
		wait   func(context.Context, time.Duration) error
		logger logrus.FieldLogger
	}

	// Option modifies a Dispatcher
	Option func(d *Dispatcher)
)

// ErrNotRegistered is returned when no mock matches a request
var ErrNotRegistered = errors.New("no mock registered")

// New returns a Dispatcher reading mocks from lookup and delays from jitter
func New(lookup Lookup, jitter Jitter, options ...Option) *Dispatcher {
	d := &Dispatcher{
		lookup: lookup,
		jitter: jitter,
		now:    time.Now,
		wait:   delay.Wait,
		logger: logrus.StandardLogger(),
	}

	for _, applyOption := range options {
		applyOption(d)
	}

	return d
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithClock overrides the time source used for last hit stamps
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithWait overrides how the dispatcher waits out a delay
func WithWait(wait func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) {
		d.wait = wait
	}
}

// Dispatch answers req from its mock. The lookup key is the method and path exactly as received.
// The calling goroutine sleeps through the simulated delay; a cancelled ctx cuts the wait short
// and returns its error, the hit still counts.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	key := spec.Key(req.Method, req.Path)

	mock, ok := d.lookup.Get(key)
	if !ok {
		return nil, fmt.Errorf("%s %w", key, ErrNotRegistered)
	}

	if req.Method == http.MethodPost || req.Method == http.MethodPut {
		d.logger.WithFields(logrus.Fields{"key": key, "payload": string(req.Body)}).Debug("incoming payload")
	}

	res, err := d.compose(key, mock)
	if err != nil {
		d.logger.WithError(err).WithField("key", key).Error("failed to compose response")
		return nil, err
	}

	d.logger.WithFields(logrus.Fields{
		"key":    key,
		"status": res.Status,
		"delay":  res.Delay,
	}).Debug("serving")

	if err := d.wait(ctx, res.Delay); err != nil {
		return nil, err
	}

	return res, nil
}

// compose keeps a broken mock from taking anything but its own request down
func (d *Dispatcher) compose(key string, mock *spec.Mock) (res *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("mock %s panicked: %v", key, r)
		}
	}()

	row := mock.Hit(d.now())

	return &Response{
		Key:    key,
		Status: mock.Status(),
		Body:   mock.Compose(row),
		Delay:  d.jitter.Compute(mock.AvgDelay, mock.Deviation),
	}, nil
}
