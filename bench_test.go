package copper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// benchRubySource is a realistic Ruby file with classes, conditionals and a
// handful of offenses for every default cop.
const benchRubySource = `require 'json'

module Billing
  class Invoice
    attr_reader :lines, :customer

    def initialize(customer, lines = [])
      @customer = customer
      @lines = lines
    end

    def total
      lines.sum { |line| line[:amount] * line[:quantity] }
    end

    def overdue?(today)
      return false if due_on.nil?
      today > due_on
    end

    def describe
      puts customer.inspect
      if customer.email.match(/@example\.com\z/)
        'internal'
      else
        'external'
      end
    end

    def reconcile(other)
      raise ArgumentError, 'mismatch' unless other.total == other.total
      binding.pry
      lines.each do |line|
        next if line[:code].match('VOID')
        yield line
      end
    end

    def to_json(*args)
      { customer: customer, lines: lines, total: total }.to_json(*args)
    end
  end
end
`

func benchEngine(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	e, err := New(append([]Option{WithLogger(log)}, opts...)...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

// BenchmarkInspectSource measures one parse and investigation of a
// realistic Ruby file.
func BenchmarkInspectSource(b *testing.B) {
	e := benchEngine(b)
	ctx := context.Background()
	src := []byte(benchRubySource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.InspectSource(ctx, "bench.rb", src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkInspectSource_Autocorrect includes the correction passes.
func BenchmarkInspectSource_Autocorrect(b *testing.B) {
	e := benchEngine(b, WithAutocorrect(true))
	ctx := context.Background()
	src := []byte(benchRubySource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.InspectSource(ctx, "bench.rb", src); err != nil {
			b.Fatal(err)
		}
	}
}

func benchFiles(b *testing.B, n int) []string {
	b.Helper()
	dir := b.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("invoice_%03d.rb", i))
		if err := os.WriteFile(paths[i], []byte(benchRubySource), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return paths
}

// BenchmarkInspectFiles compares the serial and parallel pipelines.
func BenchmarkInspectFiles(b *testing.B) {
	for _, parallel := range []bool{false, true} {
		b.Run(fmt.Sprintf("parallel=%t", parallel), func(b *testing.B) {
			e := benchEngine(b, WithParallel(parallel))
			paths := benchFiles(b, 64)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.InspectFiles(ctx, paths); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkInspectFiles_Cached measures a run where every file hits the
// result cache.
func BenchmarkInspectFiles_Cached(b *testing.B) {
	paths := benchFiles(b, 64)
	e := benchEngine(b, WithCache(filepath.Join(b.TempDir(), "bench.db")))
	ctx := context.Background()
	if _, err := e.InspectFiles(ctx, paths); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.InspectFiles(ctx, paths); err != nil {
			b.Fatal(err)
		}
	}
}
