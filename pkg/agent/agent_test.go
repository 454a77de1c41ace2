package agent_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/agent"
)

// blockingAction runs until stopped or cancelled, or fails immediately when
// fail is set.
type blockingAction struct {
	name    string
	fail    error
	done    chan struct{}
	once    sync.Once
	stops   atomic.Int32
	started atomic.Bool
}

func newBlockingAction(name string) *blockingAction {
	return &blockingAction{name: name, done: make(chan struct{})}
}

func (b *blockingAction) Name() string { return b.name }

func (b *blockingAction) Execute(ctx context.Context) error {
	b.started.Store(true)
	if b.fail != nil {
		return b.fail
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}
}

func (b *blockingAction) Stop() {
	b.stops.Add(1)
	b.once.Do(func() { close(b.done) })
}

var _ = Describe("Agent", func() {
	var a *agent.Agent

	BeforeEach(func() {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		a = agent.New(agent.Config{Logger: logger})
	})

	It("rejects duplicate action names", func() {
		Expect(a.RegisterAction(newBlockingAction("updates"))).To(Succeed())
		Expect(a.RegisterAction(newBlockingAction("updates"))).To(MatchError(ContainSubstring("already registered")))
	})

	It("refuses to run with nothing registered", func() {
		Expect(a.Run(context.Background())).To(MatchError("no actions registered"))
	})

	It("stops every action on cancellation and reports no error", func() {
		first, second := newBlockingAction("one"), newBlockingAction("two")
		Expect(a.RegisterAction(first)).To(Succeed())
		Expect(a.RegisterAction(second)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- a.Run(ctx) }()

		Eventually(first.started.Load).Should(BeTrue())
		Eventually(second.started.Load).Should(BeTrue())
		cancel()

		Eventually(errCh).Should(Receive(BeNil()))
		Expect(first.stops.Load()).To(BeNumerically(">=", 1))
		Expect(second.stops.Load()).To(BeNumerically(">=", 1))
	})

	It("stops the others when one action fails", func() {
		healthy := newBlockingAction("healthy")
		broken := newBlockingAction("broken")
		broken.fail = errors.New("listen tcp: address in use")
		Expect(a.RegisterAction(healthy)).To(Succeed())
		Expect(a.RegisterAction(broken)).To(Succeed())

		err := a.Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("action broken failed")))
		Expect(errors.Is(err, broken.fail)).To(BeTrue())
		Expect(healthy.stops.Load()).To(BeNumerically(">=", 1))
	})
})
