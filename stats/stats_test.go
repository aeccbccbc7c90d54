package stats_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/stats"
)

var _ = Describe("RunStatsManager", func() {
	var log logger.Logger

	BeforeEach(func() {
		log = logger.MustNewLogger("stats test", "error", false)
	})

	It("reports steps in the order they were added", func() {
		m := stats.NewRunStats(log, stats.SetStatsDumpFrequency(0))
		m.AddStepWatcher("convert_device")
		m.AddStepWatcher("copy_device")
		s := m.GetStats()
		Expect(s).To(HaveLen(2))
		Expect(s[0].StepName).To(Equal("convert_device"))
		Expect(s[1].StepName).To(Equal("copy_device"))
		Expect(s[1].StatusText).To(Equal("waiting"))
	})

	It("counts rows between start and stop", func() {
		m := stats.NewRunStats(log, stats.SetStatsDumpFrequency(1))
		m.StartDumping()
		sw := m.AddStepWatcher("convert_store")
		sw.StartWatching()
		Expect(sw.RenderStats().StatusText).To(Equal("running"))
		sw.AddRows(3)
		sw.AddRows(2)
		sw.StopWatching()
		m.StopDumping()
		s := m.GetStats()
		Expect(s[0].TotalRowsProcessed).To(Equal(5))
		Expect(s[0].StatusText).To(Equal("complete"))
		Expect(s[0].String()).To(ContainSubstring("totalRowsProcessed=5"))
	})

	It("tolerates StopWatching without StartWatching", func() {
		sw := stats.NewMockStatsManager(log).AddStepWatcher("noop")
		Expect(sw.StopWatching).NotTo(Panic())
	})
})
