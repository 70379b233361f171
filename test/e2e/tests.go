package main

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nbisweden/lega-e2e/internal/harness"
	"github.com/nbisweden/lega-e2e/internal/scenario"
	"github.com/nbisweden/lega-e2e/internal/store"
)

var _ = Describe("Ingestion", Ordered, func() {
	var (
		ctx     context.Context
		h       *harness.Harness
		results *store.Store
		runner  *scenario.Runner
	)

	BeforeAll(func() {
		ctx = context.Background()

		cfg.ResultsDB = ":memory:"
		if in.KeepResults {
			cfg.ResultsDB = filepath.Join(filepath.Dir(cfg.TraceFile), "e2e.duckdb")
		}
		h = harness.New(cfg)

		query, err := h.StatusQuery()
		Expect(err).NotTo(HaveOccurred())
		Eventually(query.Ping).WithContext(ctx).WithTimeout(cfg.Ingest.ReadyTimeout).Should(Succeed())

		results, err = h.Results(ctx)
		Expect(err).NotTo(HaveOccurred())

		runner, err = h.Runner(ctx, scenario.Input{
			User:              cfg.User,
			FileName:          in.File,
			RawChecksum:       in.RawChecksum,
			EncryptedChecksum: in.EncChecksum,
			Algorithm:         algorithm,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if results != nil {
			n, err := results.Attempts().Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			GinkgoWriter.Printf("recorded %d attempts\n", n)
		}
		if h != nil {
			Expect(h.Close()).To(Succeed())
		}
	})

	for _, s := range scenario.Builtin() {
		It(s.Description, Label(s.ID), func() {
			res := runner.Run(ctx, s)
			if res.Skipped {
				Skip(res.Err.Error())
			}
			Expect(res.Failure()).NotTo(HaveOccurred())
		})
	}
})
