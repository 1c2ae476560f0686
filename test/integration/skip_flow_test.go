//go:build integration

package integration

import (
	"image"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/daemon"
	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/infra"
	"github.com/eliteGoblin/autoskip/internal/usecase"
	"github.com/eliteGoblin/autoskip/internal/vision"
	"github.com/eliteGoblin/autoskip/test/fixtures"
)

var (
	skipButton    = fixtures.Button(40, 16, 1)
	confirmButton = fixtures.Button(30, 20, 2)
)

// skipScreen shows the skip marker centred on (120,80).
func skipScreen() *image.Gray {
	return fixtures.SceneWith(320, 200, map[image.Point]*image.Gray{image.Pt(100, 72): skipButton})
}

// confirmScreen shows the confirm dialog centred on (200,150).
func confirmScreen() *image.Gray {
	return fixtures.SceneWith(320, 200, map[image.Point]*image.Gray{image.Pt(185, 140): confirmButton})
}

func emptyScreen() *image.Gray {
	return fixtures.Flat(320, 200, 90)
}

var _ = Describe("Skip flow", func() {
	var (
		assetsDir  string
		templates  *infra.FileTemplateStore
		loadResult []infra.TemplateLoadResult
		focus      *fixtures.FakeFocus
		sampler    *fixtures.ScriptedSampler
		clicker    *fixtures.FakeClicker
		sink       *fixtures.RecordingSink
		controller *daemon.Controller
	)

	writeTemplate := func(name string, img *image.Gray) string {
		path, err := fixtures.WritePNG(assetsDir, name, fixtures.ToRGBA(img))
		Expect(err).NotTo(HaveOccurred())
		return path
	}

	build := func(cfg domain.WorkerConfig) {
		logger := zap.NewNop()
		templates = infra.NewFileTemplateStore(logger)
		loadResult = infra.LoadTemplates(templates, map[string]string{
			domain.TemplateSkip:    filepath.Join(assetsDir, "tpl_skip.png"),
			domain.TemplateConfirm: filepath.Join(assetsDir, "tpl_confirm.png"),
		}, logger)

		clock := infra.SystemClock{}
		sequencer := usecase.NewActionSequencer(
			usecase.SequencerConfig{Cooldown: time.Second, ConfirmDelay: 5 * time.Millisecond},
			templates, sampler, vision.NewMatcher(logger), clicker, clock, logger,
		)
		loop := daemon.NewLoop(
			daemon.LoopConfig{
				FocusPollInterval: 10 * time.Millisecond,
				CaptureRetryDelay: 2 * time.Millisecond,
				CycleInterval:     time.Millisecond,
				ErrorBackoff:      10 * time.Millisecond,
			},
			focus, sampler, sequencer, sink, clock, logger,
		)
		controller = daemon.NewController(loop, cfg, logger)
	}

	BeforeEach(func() {
		var err error
		assetsDir, err = os.MkdirTemp("", "autoskip-integration-*")
		Expect(err).NotTo(HaveOccurred())

		focus = fixtures.NewFakeFocus("Endfield.exe")
		clicker = &fixtures.FakeClicker{}
		sink = &fixtures.RecordingSink{}
	})

	AfterEach(func() {
		if controller != nil {
			controller.Stop()
		}
		os.RemoveAll(assetsDir)
	})

	Context("when the target is not in the foreground", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			writeTemplate("tpl_confirm.png", confirmButton)
			focus.Set("explorer.exe")
			sampler = fixtures.NewScriptedSampler(skipScreen())
			build(domain.DefaultWorkerConfig())
		})

		It("should report the suspension exactly once", func() {
			controller.Start()

			Eventually(func() int { return sink.Count(domain.StatusSuspended) }).Should(Equal(1))
			Consistently(func() int { return len(sink.Events()) }, 100*time.Millisecond).Should(Equal(2))
			Expect(sink.Kinds()).To(Equal([]domain.StatusKind{domain.StatusStarted, domain.StatusSuspended}))
			Expect(sampler.CaptureCalls()).To(BeZero())
		})

		It("should resume when the target comes to the front", func() {
			controller.Start()
			Eventually(func() int { return sink.Count(domain.StatusSuspended) }).Should(Equal(1))

			focus.Set("Endfield.exe")

			Eventually(func() int { return sink.Count(domain.StatusResumed) }).Should(Equal(1))
			Eventually(clicker.Clicks).Should(ContainElement(image.Pt(120, 80)))
		})
	})

	Context("when skipping is disabled", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			writeTemplate("tpl_confirm.png", confirmButton)
			sampler = fixtures.NewScriptedSampler(skipScreen())
			cfg := domain.DefaultWorkerConfig()
			cfg.SkipEnabled = false
			build(cfg)
		})

		It("should never click", func() {
			controller.Start()

			Eventually(sampler.CaptureCalls).Should(BeNumerically(">", 20))
			Expect(clicker.Clicks()).To(BeEmpty())
		})

		It("should start clicking once enabled", func() {
			controller.Start()
			Eventually(sampler.CaptureCalls).Should(BeNumerically(">", 5))

			controller.UpdateConfig(true, domain.DefaultTargetProcess)

			Eventually(clicker.Clicks).Should(HaveLen(1))
		})
	})

	Context("when the skip marker is on screen", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			writeTemplate("tpl_confirm.png", confirmButton)
		})

		It("should click skip then confirm", func() {
			sampler = fixtures.NewScriptedSampler(skipScreen(), confirmScreen(), emptyScreen())
			build(domain.DefaultWorkerConfig())

			controller.Start()

			Eventually(clicker.Clicks).Should(Equal([]image.Point{image.Pt(120, 80), image.Pt(200, 150)}))
			Eventually(func() int { return sink.Count(domain.StatusConfirm) }).Should(Equal(1))
		})

		It("should click exactly once when no confirm dialog follows", func() {
			sampler = fixtures.NewScriptedSampler(skipScreen(), emptyScreen())
			build(domain.DefaultWorkerConfig())

			controller.Start()

			Eventually(func() int { return sink.Count(domain.StatusSkip) }).Should(Equal(1))
			Consistently(clicker.Clicks, 100*time.Millisecond).Should(Equal([]image.Point{image.Pt(120, 80)}))
			Expect(sink.Count(domain.StatusConfirm)).To(BeZero())
		})
	})

	Context("when the confirm template is missing", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			sampler = fixtures.NewScriptedSampler(skipScreen(), confirmScreen(), emptyScreen())
			build(domain.DefaultWorkerConfig())
		})

		It("should report it only at load time", func() {
			Expect(loadResult).To(HaveLen(2))
			Expect(loadResult[0].Name).To(Equal(domain.TemplateConfirm))
			Expect(loadResult[0].Err).To(MatchError(domain.ErrTemplateMissing))
			Expect(loadResult[1].Err).NotTo(HaveOccurred())
		})

		It("should still click skip and silently skip the confirm step", func() {
			controller.Start()

			Eventually(clicker.Clicks).Should(Equal([]image.Point{image.Pt(120, 80)}))
			Consistently(func() int { return sink.Count(domain.StatusCycleError) }, 50*time.Millisecond).Should(BeZero())
			Expect(sink.Count(domain.StatusCaptureError)).To(BeZero())
		})
	})

	Context("when the confirm template is corrupt", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			Expect(os.WriteFile(filepath.Join(assetsDir, "tpl_confirm.png"), []byte("not a png"), 0o600)).To(Succeed())
			sampler = fixtures.NewScriptedSampler(emptyScreen())
			build(domain.DefaultWorkerConfig())
		})

		It("should disable only that template", func() {
			Expect(loadResult[0].Err).To(MatchError(domain.ErrTemplateCorrupt))
			_, ok := templates.Get(domain.TemplateConfirm)
			Expect(ok).To(BeFalse())
			_, ok = templates.Get(domain.TemplateSkip)
			Expect(ok).To(BeTrue())
		})
	})

	Context("when captures fail", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			sampler = fixtures.NewScriptedSampler(skipScreen())
			sampler.FailNext(3)
			build(domain.DefaultWorkerConfig())
		})

		It("should report each failure and keep going", func() {
			controller.Start()

			Eventually(clicker.Clicks).Should(HaveLen(1))
			Expect(sink.Count(domain.StatusCaptureError)).To(Equal(3))
			Expect(sink.Count(domain.StatusCycleError)).To(BeZero())
		})
	})

	Context("when stopped and started again", func() {
		BeforeEach(func() {
			writeTemplate("tpl_skip.png", skipButton)
			focus.Set("explorer.exe")
			sampler = fixtures.NewScriptedSampler(emptyScreen())
			build(domain.DefaultWorkerConfig())
		})

		It("should exit before stop returns and re-detect focus on start", func() {
			Expect(controller.Start()).To(BeTrue())
			Eventually(func() int { return sink.Count(domain.StatusSuspended) }).Should(Equal(1))

			Expect(controller.Stop()).To(BeTrue())
			Expect(controller.Running()).To(BeFalse())
			Expect(sink.Count(domain.StatusStopped)).To(Equal(1))
			events := len(sink.Events())
			Consistently(func() int { return len(sink.Events()) }, 50*time.Millisecond).Should(Equal(events))

			Expect(controller.Start()).To(BeTrue())
			Eventually(func() int { return sink.Count(domain.StatusSuspended) }).Should(Equal(2))
		})
	})
})
