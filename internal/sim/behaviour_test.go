package sim_test

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/integrators"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/strategy"
	"github.com/san-kum/craftsim/internal/world"
)

func arriveTarget(w *world.World, s ecs.Entity) mgl64.Vec3 {
	strat, ok := w.Strategies.Get(s)
	Expect(ok).To(BeTrue())
	st, ok := strat.State.(*strategy.RunCircuitState)
	Expect(ok).To(BeTrue())
	r, ok := w.Routines.Get(st.Arrive)
	Expect(ok).To(BeTrue())
	return r.Params.(steering.Arrive).Target.Position
}

var _ = Describe("Engine control loop", func() {
	var (
		w     *world.World
		craft ecs.Entity
	)

	BeforeEach(func() {
		w = world.New(physics.NewSpace(integrators.NewRK4()), nil)
		cfg := engine.DefaultConfig()
		cfg.LimitAcceleration = false

		var err error
		craft, err = w.SpawnCraft(world.CraftDesc{
			Engine:     cfg,
			Dimensions: engine.Dimensions{2, 2, 10},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.SetInput(craft, mgl64.Vec3{0, 0, -50}, mgl64.Vec3{})).To(Succeed())
	})

	It("saturates the forward flame at the thruster bound and never exceeds it", func() {
		s := sim.New(w)
		result, err := s.Run(context.Background(), sim.Config{Dt: 1.0 / 60, Duration: 5, ValidateState: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Samples).NotTo(BeEmpty())

		Expect(result.Samples[0].LinearFlame[2]).To(BeNumerically("~", -100, 1e-9))
		for _, sample := range result.Samples {
			Expect(math.Abs(sample.LinearFlame[2])).To(BeNumerically("<=", 100+1e-9))
			Expect(sample.FlameBound[2]).To(BeNumerically("~", 100, 1e-9))
		}

		last := result.Samples[len(result.Samples)-1]
		Expect(last.LocalVelocity[2]).To(BeNumerically("~", -50, 2))
	})

	It("holds the same bound when the per-craft stages run in parallel", func() {
		_, err := w.SpawnCraft(world.CraftDesc{
			Engine:     engine.DefaultConfig(),
			Dimensions: engine.Dimensions{1, 1, 1},
			Position:   mgl64.Vec3{100, 0, 0},
		})
		Expect(err).NotTo(HaveOccurred())

		s := sim.New(w)
		result, err := s.Run(context.Background(), sim.Config{Dt: 1.0 / 60, Duration: 2, Parallel: true, Track: craft})
		Expect(err).NotTo(HaveOccurred())
		for _, sample := range result.Samples {
			Expect(math.Abs(sample.LinearFlame[2])).To(BeNumerically("<=", 100+1e-9))
		}
	})
})

var _ = Describe("Circuit patrol", func() {
	var (
		w      *world.World
		space  *physics.Space
		craft  ecs.Entity
		runner ecs.Entity
		w1, w2 mgl64.Vec3
	)

	BeforeEach(func() {
		space = physics.NewSpace(integrators.NewRK4())
		w = world.New(space, nil)
		w1, w2 = mgl64.Vec3{0, 0, -300}, mgl64.Vec3{0, 0, 300}

		var err error
		craft, err = w.SpawnCraft(world.CraftDesc{
			Engine:     engine.DefaultConfig(),
			Dimensions: engine.Dimensions{2, 2, 10},
		})
		Expect(err).NotTo(HaveOccurred())

		points, err := w.SpawnCircuit([]mgl64.Vec3{w1, w2}, 20)
		Expect(err).NotTo(HaveOccurred())

		runner, err = w.SpawnStrategy(craft, strategy.RunCircuit{InitialPoint: points[0]})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.SetMind(craft, runner)).To(Succeed())
	})

	It("activates on the first tick and heads for the first waypoint", func() {
		s := sim.New(w)
		Expect(s.Step(context.Background(), 1.0/60, false)).To(Succeed())

		strat, ok := w.Strategies.Get(runner)
		Expect(ok).To(BeTrue())
		Expect(strat.IsActive()).To(BeTrue())
		Expect(arriveTarget(w, runner)).To(Equal(w1))

		c, _ := w.Craft(craft)
		Expect(c.Linear.Input[2]).To(BeNumerically("<", 0))
	})

	It("retargets W1 to W2 and back when teleported through the sensors", func() {
		s := sim.New(w)
		ctx := context.Background()
		Expect(s.Step(ctx, 1.0/60, false)).To(Succeed())

		c, _ := w.Craft(craft)
		space.Teleport(c.Body, w1, mgl64.Vec3{})
		Expect(s.Step(ctx, 1.0/60, false)).To(Succeed())
		Expect(arriveTarget(w, runner)).To(Equal(w2))

		space.Teleport(c.Body, w2, mgl64.Vec3{})
		Expect(s.Step(ctx, 1.0/60, false)).To(Succeed())
		Expect(arriveTarget(w, runner)).To(Equal(w1))
	})

	It("keeps patrolling under its own thrust", func() {
		var targets []mgl64.Vec3
		s := sim.New(w)
		s.AddObserver(sim.ObserverFunc(func(tick int, w *world.World, _ sim.Sample) {
			target := arriveTarget(w, runner)
			if len(targets) == 0 || targets[len(targets)-1] != target {
				targets = append(targets, target)
			}
		}))

		_, err := s.Run(context.Background(), sim.Config{Dt: 1.0 / 60, Duration: 40, ValidateState: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(len(targets)).To(BeNumerically(">=", 4))
		for i, target := range targets {
			if i%2 == 0 {
				Expect(target).To(Equal(w1))
			} else {
				Expect(target).To(Equal(w2))
			}
		}
	})
})
