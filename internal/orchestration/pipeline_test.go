package orchestration_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/logging"
	"github.com/lpouillo/google-dc-g5k/internal/nodelist"
	"github.com/lpouillo/google-dc-g5k/internal/orchestration"
	"github.com/lpouillo/google-dc-g5k/internal/platform/sim"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	vdctest "github.com/lpouillo/google-dc-g5k/internal/testing"
)

var _ = Describe("Pipeline against the simulated testbed", func() {
	var (
		cfg     *config.Config
		simOpts sim.Options
		tb      *sim.Testbed
	)

	run := func() (*orchestration.Result, error) {
		tb = sim.New(simOpts)
		Expect(tb.Start()).To(Succeed())
		DeferCleanup(tb.Close)

		d := orchestration.NewDriver(cfg, tb.Services(cfg.Distem.Port), orchestration.Options{
			Log: logging.New(GinkgoWriter, logging.Verbose),
			Timeouts: &config.Timeouts{
				Reservation:     10 * time.Second,
				Deploy:          10 * time.Second,
				Command:         10 * time.Second,
				PollInterval:    time.Millisecond,
				PlanningHorizon: 72 * time.Hour,
			},
		})
		return d.Run(context.Background())
	}

	BeforeEach(func() {
		prev, had := os.LookupEnv(config.EnvG5KUser)
		Expect(os.Unsetenv(config.EnvG5KUser)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(config.EnvG5KUser, prev)
			}
		})

		cfg = vdctest.NewConfigBuilder().
			WithNodes(10, 100).
			WithBlacklist("sagittaire").
			WithBatchSize(50).
			WithOutput(filepath.Join(GinkgoT().TempDir(), "nodes.list")).
			WithSimulate(true).
			Build()
		simOpts = sim.DefaultOptions("nancy")
	})

	Context("with a healthy site", func() {
		It("provisions every requested node and writes them in suffix order", func() {
			cfg.VirtualNodes = 237

			res, err := run()
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Deployed).To(Equal(10))
			Expect(res.Coordinator).To(Equal("graphene-1.nancy.grid5000.fr"))
			Expect(res.Running).To(Equal(237))
			Expect(res.Missing).To(BeEmpty())

			records, err := nodelist.Read(cfg.Output)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(237))
			for i, r := range records {
				Expect(r.Name).To(Equal(fmt.Sprintf("node-%d", i+1)))
			}
		})

		It("never reserves blacklisted clusters", func() {
			simOpts.Clusters = map[string]int{"graphene": 4, "sagittaire": 40}
			cfg.PhysicalNodes = 4
			cfg.VirtualNodes = 8

			_, err := run()
			Expect(err).NotTo(HaveOccurred())

			Expect(tb.Submitted()).To(HaveLen(1))
			Expect(tb.Submitted()[0].Resources).To(Equal("slash_22=1+{cluster='graphene'}/nodes=4,walltime=2:00:00"))
		})

		It("drops the remainder under the drop policy", func() {
			cfg.VirtualNodes = 105
			cfg.Remainder = config.RemainderDrop

			res, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Requested).To(Equal(100))
			Expect(res.Running).To(Equal(100))
		})
	})

	Context("with partial failures", func() {
		It("continues on the hosts that deployed", func() {
			simOpts.FailDeploy = []string{"graphene-1", "graphene-4"}
			cfg.VirtualNodes = 16

			res, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deployed).To(Equal(8))
			Expect(res.Coordinator).To(Equal("graphene-2.nancy.grid5000.fr"))
			Expect(res.Running).To(Equal(16))
			for _, v := range tb.VNodes() {
				Expect(v.Host).NotTo(Equal("graphene-1.nancy.grid5000.fr"))
			}
		})

		It("reports nodes whose script failed as missing", func() {
			simOpts.FailVNodes = []string{"node-3", "node-42"}

			res, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Running).To(Equal(98))
			Expect(res.Missing).To(ConsistOf("node-3", "node-42"))
		})
	})

	Context("with fatal conditions", func() {
		It("fails the reservation when the site is too small", func() {
			cfg.PhysicalNodes = 100

			res, err := run()
			Expect(err).To(MatchError(provisioning.ErrNoFreeSlot))
			Expect(res.FailedPhase).To(Equal("reservation"))
			Expect(tb.Submitted()).To(BeEmpty())
		})

		It("fails when no host deploys", func() {
			simOpts.FailDeploy = grapheneHosts(10)

			res, err := run()
			Expect(err).To(MatchError(provisioning.ErrNoDeployedHosts))
			Expect(res.FailedPhase).To(Equal("fabric"))
			Expect(cfg.Output).NotTo(BeAnExistingFile())
		})

		It("fails on an empty inventory unless allowed", func() {
			cfg.VirtualNodes = 2
			simOpts.FailVNodes = []string{"node-1", "node-2"}

			res, err := run()
			Expect(err).To(MatchError(provisioning.ErrEmptyInventory))
			Expect(res.FailedPhase).To(Equal("vnodes"))
			Expect(cfg.Output).NotTo(BeAnExistingFile())
		})

		It("writes an empty node list when an empty inventory is allowed", func() {
			cfg.VirtualNodes = 2
			cfg.RequireVNodes = false
			simOpts.FailVNodes = []string{"node-1", "node-2"}

			res, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Running).To(BeZero())
			Expect(cfg.Output).To(BeAnExistingFile())
		})
	})
})

// grapheneHosts returns the short names of the first n graphene hosts.
func grapheneHosts(n int) []string {
	hosts := make([]string, n)
	for i := range n {
		hosts[i] = fmt.Sprintf("graphene-%d", i+1)
	}
	return hosts
}
