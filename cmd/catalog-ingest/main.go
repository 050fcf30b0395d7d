// Command catalog-ingest loads master data into PostgreSQL: the book catalog,
// customer records, and discount definitions from CSV files (plain or gzip),
// plus optional bulk coupon-code dumps.
//
// Coupon dumps are plain line-oriented files (one code per line, gzipped)
// exported by marketing campaigns. They can contain hundreds of millions of
// lines, most of them junk or repeats, so codes are screened by length and
// deduplicated with a bloom filter before touching the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
	"github.com/xenking/bookstore-pricing/internal/masterdata"
	"github.com/xenking/bookstore-pricing/internal/storage/postgres"
)

const (
	bloomCapacity = 100_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 10

	// Rule applied to every freshly discovered coupon code.
	defaultCouponPercent  = "0.10"
	defaultCouponUses     = 1
	defaultCouponValidity = 365 * 24 * time.Hour
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "master-data", "directory containing books/customers/discounts CSV files and codes*.gz dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	books, customers, templates, err := loadMasterData(dataDir)
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	bookRepo := postgres.NewBookRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)

	for _, b := range books {
		if err := bookRepo.Upsert(ctx, b); err != nil {
			return err
		}
	}
	for _, c := range customers {
		if err := customerRepo.Upsert(ctx, c); err != nil {
			return err
		}
	}
	for _, t := range templates {
		if err := discountRepo.UpsertTemplate(ctx, t); err != nil {
			return err
		}
	}
	slog.Info("master data written",
		slog.Int("books", len(books)),
		slog.Int("customers", len(customers)),
		slog.Int("discounts", len(templates)),
	)

	dumps, err := couponDumps(dataDir)
	if err != nil {
		return err
	}
	if len(dumps) == 0 {
		return nil
	}

	return ingestCouponDumps(ctx, discountRepo, dumps)
}

// loadMasterData parses the three CSV files concurrently. Each file may carry
// a .gz suffix.
func loadMasterData(dataDir string) ([]book.Book, []*customer.Customer, []*discount.Template, error) {
	var (
		books     []book.Book
		customers []*customer.Customer
		templates []*discount.Template
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		books, err = loadFile(dataDir, "books.csv", masterdata.LoadBooks)
		return err
	})
	g.Go(func() (err error) {
		customers, err = loadFile(dataDir, "customers.csv", masterdata.LoadCustomers)
		return err
	})
	g.Go(func() (err error) {
		templates, err = loadFile(dataDir, "discounts.csv", masterdata.LoadDiscounts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return books, customers, templates, nil
}

func loadFile[T any](dataDir, name string, parse func(r io.Reader) ([]T, error)) ([]T, error) {
	path := filepath.Join(dataDir, name)
	if _, err := os.Stat(path); err != nil {
		path += ".gz"
	}

	f, err := masterdata.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	out, err := parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return out, nil
}

// couponDumps lists the bulk code dump files in the data directory.
func couponDumps(dataDir string) ([]string, error) {
	dumps, err := filepath.Glob(filepath.Join(dataDir, "codes*.gz"))
	if err != nil {
		return nil, errors.Wrap(err, "glob coupon dumps")
	}
	return dumps, nil
}

// ingestCouponDumps streams every dump, drops malformed and repeated codes,
// and upserts the remainder as coupon discount templates with the default
// rule. The bloom filter bounds memory across arbitrarily large dumps; its
// false positives drop a code in about 0.1% of cases, which is acceptable for
// campaign codes.
func ingestCouponDumps(ctx context.Context, repo *postgres.DiscountRepository, dumps []string) error {
	existing, err := repo.ListTemplates(ctx)
	if err != nil {
		return errors.Wrap(err, "list existing templates")
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		if t.Kind == discount.KindCoupon {
			known[t.CouponCode] = struct{}{}
		}
	}

	nextID, err := repo.NextTemplateID(ctx)
	if err != nil {
		return err
	}

	percent, err := decimal.NewFromString(defaultCouponPercent)
	if err != nil {
		return errors.Wrap(err, "parse default coupon percent")
	}

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	now := time.Now()

	var scanned, written uint64
	for _, path := range dumps {
		slog.Info("ingesting coupon dump", slog.String("file", path))

		err := streamGzFile(ctx, path, func(code string) error {
			scanned++
			if scanned%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Uint64("scanned", scanned),
					slog.Uint64("written", written),
				)
			}

			if len(code) < minCodeLen || len(code) > maxCodeLen {
				return nil
			}
			if seen.TestAndAddString(code) {
				return nil
			}
			if _, ok := known[code]; ok {
				return nil
			}

			t, err := discount.NewCouponTemplate(
				nextID, now, now.Add(defaultCouponValidity), percent, defaultCouponUses, code)
			if err != nil {
				return err
			}
			if err := repo.UpsertTemplate(ctx, t); err != nil {
				return err
			}
			nextID++
			written++
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}
	}

	slog.Info("coupon dumps ingested",
		slog.Uint64("scanned", scanned),
		slog.Uint64("written", written),
	)
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
