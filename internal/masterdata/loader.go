// Package masterdata parses the store's flat-file records: books, customers,
// and discount definitions. Files are CSV with a header row, optionally
// gzip-compressed. Dates use YYYY-MM-DD with an optional HH:MM:SS part.
package masterdata

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-pricing/internal/domain/book"
	"github.com/xenking/bookstore-pricing/internal/domain/customer"
	"github.com/xenking/bookstore-pricing/internal/domain/discount"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Open opens a master-data file, transparently decompressing .gz files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzReadCloser{gz: gz, f: f}, nil
}

type gzReadCloser struct {
	gz *pgzip.Reader
	f  *os.File
}

func (r *gzReadCloser) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *gzReadCloser) Close() error {
	gzErr := r.gz.Close()
	fErr := r.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// ParseTime parses a master-data timestamp, accepting both the date-only and
// the date-time layout.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
	}
	return t, nil
}

// records reads all CSV rows and maps them by header column name.
func records(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[strings.TrimSpace(col)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadBooks parses book records: title, author, price.
func LoadBooks(r io.Reader) ([]book.Book, error) {
	rows, err := records(r)
	if err != nil {
		return nil, err
	}

	books := make([]book.Book, 0, len(rows))
	for _, row := range rows {
		price, err := decimal.NewFromString(row["price"])
		if err != nil {
			return nil, errors.Wrapf(err, "book %q: parse price", row["title"])
		}
		books = append(books, book.Book{
			Title:     row["title"],
			Author:    row["author"],
			UnitPrice: price,
		})
	}
	return books, nil
}

// LoadCustomers parses customer records: username, location, signup_date.
func LoadCustomers(r io.Reader) ([]*customer.Customer, error) {
	rows, err := records(r)
	if err != nil {
		return nil, err
	}

	customers := make([]*customer.Customer, 0, len(rows))
	for _, row := range rows {
		signup, err := ParseTime(row["signup_date"])
		if err != nil {
			return nil, errors.Wrapf(err, "customer %q: parse signup date", row["username"])
		}
		customers = append(customers, customer.New(row["username"], row["location"], signup))
	}
	return customers, nil
}

// LoadDiscounts parses discount template records: id, start_valid, end_valid,
// amount, nb_usage, coupon_code. Rows with a coupon code become coupon
// templates; the rest are general. Invalid field values fail the whole load.
func LoadDiscounts(r io.Reader) ([]*discount.Template, error) {
	rows, err := records(r)
	if err != nil {
		return nil, err
	}

	templates := make([]*discount.Template, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(row["id"], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "discount: parse id %q", row["id"])
		}
		from, err := ParseTime(row["start_valid"])
		if err != nil {
			return nil, errors.Wrapf(err, "discount %d: parse start_valid", id)
		}
		until, err := ParseTime(row["end_valid"])
		if err != nil {
			return nil, errors.Wrapf(err, "discount %d: parse end_valid", id)
		}
		amount, err := decimal.NewFromString(row["amount"])
		if err != nil {
			return nil, errors.Wrapf(err, "discount %d: parse amount", id)
		}
		uses, err := strconv.Atoi(row["nb_usage"])
		if err != nil {
			return nil, errors.Wrapf(err, "discount %d: parse nb_usage", id)
		}

		var t *discount.Template
		if code := strings.TrimSpace(row["coupon_code"]); code != "" {
			t, err = discount.NewCouponTemplate(id, from, until, amount, uses, code)
		} else {
			t, err = discount.NewTemplate(id, from, until, amount, uses)
		}
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}
