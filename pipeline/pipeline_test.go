package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/xlpipe/components"
	"github.com/relloyd/xlpipe/file"
	"github.com/relloyd/xlpipe/logger"
	"github.com/relloyd/xlpipe/pipeline"
	"github.com/relloyd/xlpipe/rdbms/shared"
	"github.com/relloyd/xlpipe/stage/mocks"
	"github.com/relloyd/xlpipe/stats"
	"github.com/relloyd/xlpipe/stream"
)

var _ = Describe("Runner", func() {
	var log logger.Logger
	var calls []string

	task := func(name string, err error) pipeline.Task {
		return pipeline.Task{Name: name, Run: func(ctx context.Context) error {
			calls = append(calls, name)
			return err
		}}
	}

	BeforeEach(func() {
		log = logger.MustNewLogger("pipeline test", "error", false)
		calls = nil
	})

	It("runs every task in order", func() {
		r := pipeline.NewRunner(log, []pipeline.Task{task("convert_device", nil), task("stage_device", nil), task("copy_device", nil)}, pipeline.SetCleanupHandler(nil))
		Expect(r.Run(context.Background())).To(Succeed())
		Expect(calls).To(Equal([]string{"convert_device", "stage_device", "copy_device"}))
		for _, s := range r.Statuses() {
			Expect(s.Status).To(Equal(pipeline.StatusComplete))
			Expect(s.IsFinished()).To(BeTrue())
		}
		Expect(r.Guid()).To(HaveLen(20))
	})

	It("stops at the first failure and skips the rest", func() {
		cause := errors.New("copy failed")
		r := pipeline.NewRunner(log, []pipeline.Task{task("stage_store", nil), task("copy_store", cause), task("delete_store_csv", nil)}, pipeline.SetCleanupHandler(nil))
		err := r.Run(context.Background())
		Expect(errors.Is(err, pipeline.ErrTaskFailed)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		var te *pipeline.TaskError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.Task).To(Equal("copy_store"))
		Expect(calls).To(Equal([]string{"stage_store", "copy_store"}))
		s := r.Statuses()
		Expect(s[0].Status).To(Equal(pipeline.StatusComplete))
		Expect(s[1].Status).To(Equal(pipeline.StatusCompleteWithError))
		Expect(s[1].Error).To(Equal("copy failed"))
		Expect(s[2].Status).To(Equal(pipeline.StatusSkipped))
	})

	It("marks tasks as shutdown when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		blocking := pipeline.Task{Name: "build_marts", Run: func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}}
		r := pipeline.NewRunner(log, []pipeline.Task{blocking, task("build_analyses", nil)}, pipeline.SetCleanupHandler(nil))
		err := r.Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(errors.Is(err, pipeline.ErrTaskFailed)).To(BeFalse())
		Expect(calls).To(BeEmpty())
		Expect(r.Statuses()[0].Status).To(Equal(pipeline.StatusShutdown))
		Expect(r.Statuses()[1].Status).To(Equal(pipeline.StatusShutdown))
	})

	It("marshals statuses as strings", func() {
		b, err := json.Marshal(pipeline.TaskStatus{Task: "x", Status: pipeline.StatusCompleteWithError})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(ContainSubstring(`"status":"complete with error"`))
		b, err = json.Marshal(pipeline.StatusSkipped)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal(`"skipped"`))
		_, err = json.Marshal(pipeline.Status(99))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RunComponents", func() {
	var log logger.Logger

	BeforeEach(func() {
		log = logger.MustNewLogger("pipeline test", "error", false)
	})

	sheet := &file.Sheet{Name: "Sheet1", Header: []string{"id", "type"}, Rows: [][]string{{"D1", "1"}, {"D2", "3"}}}

	It("drains the final output of a chain", func() {
		sm := stats.NewRunStats(log, stats.SetStatsDumpFrequency(0))
		var chain *pipeline.Chain
		recs, err := pipeline.RunComponents(context.Background(), log, sm, func(c *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
			chain = c
			out, ctl := components.NewSheetRowInput(&components.SheetRowInputConfig{
				Log:            log,
				Name:           "convert_device",
				Sheet:          sheet,
				StepWatcher:    c.StepWatcher("convert_device"),
				WaitCounter:    c.Waiter("convert_device"),
				PanicHandlerFn: c.PanicHandlerFn,
			})
			return out, []chan components.ControlAction{ctl}
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[1].GetData("id")).To(Equal("D2"))
		status, ok := chain.StepStatus("convert_device")
		Expect(ok).To(BeTrue())
		Expect(status).To(Equal(pipeline.StepStatusDone))
		Expect(sm.GetStats()).To(HaveLen(1))
		Expect(sm.GetStats()[0].TotalRowsProcessed).To(Equal(2))
	})

	It("returns the error of a component that fails", func() {
		ctrl := gomock.NewController(GinkgoT())
		defer ctrl.Finish()
		stager := mocks.NewMockStager(ctrl)
		stager.EXPECT().Location().Return("@S").AnyTimes()
		stager.EXPECT().Put(gomock.Any(), gomock.Any()).Return("", errors.New("stage is full")).AnyTimes()

		_, err := pipeline.RunComponents(context.Background(), log, nil, func(c *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
			in := make(chan stream.Record, 1)
			rec := stream.NewRecord()
			rec.SetData(components.Defaults.ChanField4CSVFileName, "/tmp/device.csv")
			in <- rec
			close(in)
			out, ctl := components.NewCopyFilesToStage(&components.CopyFilesToStageConfig{
				Log:            log,
				Name:           "stage_device",
				InputChan:      in,
				Stager:         stager,
				WaitCounter:    c.Waiter("stage_device"),
				PanicHandlerFn: c.PanicHandlerFn,
			})
			return out, []chan components.ControlAction{ctl}
		})
		Expect(err).To(MatchError(ContainSubstring("stage is full")))
	})

	It("reports a component that fails during setup", func() {
		_, err := pipeline.RunComponents(context.Background(), log, nil, func(c *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
			out, ctl := components.NewFileRemover(&components.FileRemoverConfig{
				Log:            log,
				Name:           "delete_device_csv",
				PanicHandlerFn: c.PanicHandlerFn,
			})
			return out, []chan components.ControlAction{ctl}
		})
		Expect(err).To(MatchError(ContainSubstring("missing input channel")))
	})

	It("shuts the chain down when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		pipeline.ShutdownTimeout = time.Second
		done := make(chan error, 1)
		go func() {
			_, err := pipeline.RunComponents(ctx, log, nil, func(c *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
				in := make(chan stream.Record) // never closed.
				out, ctl := components.NewFileRemover(&components.FileRemoverConfig{
					Log:            log,
					Name:           "delete_store_csv",
					InputChan:      in,
					WaitCounter:    c.Waiter("delete_store_csv"),
					PanicHandlerFn: c.PanicHandlerFn,
				})
				return out, []chan components.ControlAction{ctl}
			})
			done <- err
		}()
		cancel()
		Eventually(done, 3*time.Second).Should(Receive(MatchError(context.Canceled)))
	})

	It("reports cancellation even when the chain has output ready", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pipeline.ShutdownTimeout = time.Second
		recs, err := pipeline.RunComponents(ctx, log, nil, func(c *pipeline.Chain) (chan stream.Record, []chan components.ControlAction) {
			in := make(chan stream.Record, 1)
			rec := stream.NewRecord()
			rec.SetData(components.Defaults.ChanField4CSVFileName, "/nonexistent/device.csv")
			in <- rec
			close(in)
			out, ctl := components.NewFileRemover(&components.FileRemoverConfig{
				Log:            log,
				Name:           "delete_device_csv",
				InputChan:      in,
				WaitCounter:    c.Waiter("delete_device_csv"),
				PanicHandlerFn: c.PanicHandlerFn,
			})
			return out, []chan components.ControlAction{ctl}
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(recs).To(BeNil())
	})
})

var _ = Describe("ExecStatements", func() {
	log := logger.MustNewLogger("pipeline test", "error", false)

	It("runs statements in order and returns the rows affected", func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()
		mock.ExpectExec("drop table if exists staging_stg_stores").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("create table staging_stg_stores as select 1").WillReturnResult(sqlmock.NewResult(0, 2))

		affected, err := pipeline.ExecStatements(context.Background(), log, nil, "build_stg_stores", shared.NewMockConnection(db, "sqlite"),
			[]string{"drop table if exists staging_stg_stores", "create table staging_stg_stores as select 1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(affected).To(Equal([]int64{0, 2}))
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("returns the error of a failed statement and skips the rest", func() {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()
		mock.ExpectExec("create schema if not exists RAW").WillReturnError(errors.New("no warehouse selected"))

		_, err = pipeline.ExecStatements(context.Background(), log, nil, "create_schemas", shared.NewMockConnection(db, "snowflake"),
			[]string{"create schema if not exists RAW", "create schema if not exists MARTS"})
		Expect(err).To(MatchError(ContainSubstring("no warehouse selected")))
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("does nothing without statements", func() {
		affected, err := pipeline.ExecStatements(context.Background(), log, nil, "create_schemas", nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(affected).To(BeEmpty())
	})
})
