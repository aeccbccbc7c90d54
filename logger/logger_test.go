package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/xlpipe/logger"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Logger", func() {
	var log *logger.LoggerImpl
	var logOutput *bytes.Buffer

	readEntry := func() map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		return actual
	}

	BeforeEach(func() {
		log = logger.MustNewLogger("test-service", "debug", true)
		log.SetFormatter(true)
		logOutput = bytes.NewBufferString("")
		log.SetOutput(logOutput)
	})

	It("Should have `test-service` as service name", func() {
		log.Info("Testing")
		Expect(readEntry()["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		log.Info("Testing")
		Expect(readEntry()["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		log.Warn("Testing")
		Expect(readEntry()["level"]).To(Equal("warning"))
	})

	It("Should add a stack trace to errors when stack dumps are on", func() {
		log.Error("Testing")
		actual := readEntry()
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		log.Info("Testing")
		Expect(readEntry()["msg"]).To(Equal("Testing"))
	})

	It("Should panic with the log entry so callers can recover the message", func() {
		var recovered interface{}
		func() {
			defer func() { recovered = recover() }()
			log.Panic("step ", "failed")
		}()
		entry, ok := recovered.(*logrus.Entry)
		Expect(ok).To(BeTrue())
		Expect(entry.Message).To(Equal("step failed"))
	})

	It("Should reject an unknown log level", func() {
		_, err := logger.NewLogger("test-service", "chatty", false)
		Expect(err).To(HaveOccurred())
	})
})
