// internal/store/repository.go

// Package store persists harvest results in Postgres. One wide table
// carries the fixed business attribute schema plus dynamic tag columns
// (covid19_* / amenity_*) that are added as new tags appear in
// harvested pages. All writes are idempotent upserts keyed on
// business_id.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resto-harvester/internal/common/database"
	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
	"resto-harvester/internal/common/metrics"
	"resto-harvester/internal/models"
)

// detailColumns is the fixed attribute column list in persisted order.
var detailColumns = []string{
	"is_business_closed",
	"year_established",
	"overall_rating",
	"num_reviews",
	"menu_url",
	"price_range",
	"phone_number",
	"num_reviews_5_stars",
	"num_reviews_4_stars",
	"num_reviews_3_stars",
	"num_reviews_2_stars",
	"num_reviews_1_star",
	"address_line1",
	"address_line2",
	"address_line3",
	"city",
	"region_code",
	"postal_code",
	"country_code",
	"operation_hours_mon",
	"operation_hours_tue",
	"operation_hours_wed",
	"operation_hours_thu",
	"operation_hours_fri",
	"operation_hours_sat",
	"operation_hours_sun",
	"categories",
	"top_food_items",
	"monthly_ratings_by_year",
}

var histogramColumns = detailColumns[7:12]

var hourColumns = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Repository is the Postgres access layer for harvest state.
type Repository struct {
	db        *database.PostgresClient
	logger    logger.Logger
	table     string
	batchSize int
}

func NewRepository(db *database.PostgresClient, log logger.Logger, table string, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Repository{db: db, logger: log, table: table, batchSize: batchSize}
}

// LoadRecords fetches the persisted harvest state of every business in
// a location. Missing last_reviews_count loads as -1 (never harvested)
// and missing errors_at as the "-1" sentinel.
func (r *Repository) LoadRecords(ctx context.Context, location string) ([]models.Record, error) {
	query := fmt.Sprintf(
		"SELECT business_id, business_name, business_url, location, %s, "+
			"last_reviews_count, errors_at, menu_items_scraped_flag "+
			"FROM %s WHERE location = $1",
		strings.Join(detailColumns, ", "), r.table)

	rows, err := r.db.Query(ctx, query, location)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(query, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(query, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(query, err)
	}
	return records, nil
}

// MenuTarget is one business whose hosted menu still needs harvesting.
type MenuTarget struct {
	BusinessID string
	MenuURL    string
}

// ListMenuTargets returns the businesses in a location with a known
// menu URL that has not been harvested yet.
func (r *Repository) ListMenuTargets(ctx context.Context, location string) ([]MenuTarget, error) {
	query := fmt.Sprintf(
		"SELECT business_id, menu_url FROM %s "+
			"WHERE location = $1 AND menu_url IS NOT NULL AND menu_items_scraped_flag = 0",
		r.table)

	rows, err := r.db.Query(ctx, query, location)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(query, err)
	}
	defer rows.Close()

	var targets []MenuTarget
	for rows.Next() {
		var target MenuTarget
		if err := rows.Scan(&target.BusinessID, &target.MenuURL); err != nil {
			return nil, errors.NewQueryExecutionFailedError(query, err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// EnsureTagColumns adds any tag column not yet present on the table as
// a zero-defaulted int4. Existing columns are left alone.
func (r *Repository) EnsureTagColumns(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	query := "SELECT column_name FROM information_schema.columns WHERE table_name = $1"
	rows, err := r.db.Query(ctx, query, r.table)
	if err != nil {
		return errors.NewQueryExecutionFailedError(query, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.NewQueryExecutionFailedError(query, err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return errors.NewQueryExecutionFailedError(query, err)
	}

	var missing []string
	for _, tag := range tags {
		if !existing[tag] {
			missing = append(missing, tag)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	clauses := make([]string, 0, len(missing))
	for _, column := range missing {
		clauses = append(clauses, fmt.Sprintf("ADD COLUMN %s int4 NULL DEFAULT 0", column))
	}
	alter := fmt.Sprintf("ALTER TABLE %s %s", r.table, strings.Join(clauses, ", "))

	if _, err := r.db.Exec(ctx, alter); err != nil {
		return errors.NewColumnCreateFailedError(strings.Join(missing, ", "), err)
	}

	r.logger.Info("Added tag columns", map[string]interface{}{
		"table":   r.table,
		"columns": missing,
	})
	return nil
}

// UpsertBusinesses writes freshly enumerated listings. The same
// business can surface under two search filters, so duplicates are
// dropped first-seen-wins before writing. location is insert-only: a
// business already persisted under another location keeps it.
func (r *Repository) UpsertBusinesses(ctx context.Context, businesses []models.Business) error {
	seen := make(map[string]bool, len(businesses))
	deduped := make([]models.Business, 0, len(businesses))
	for _, b := range businesses {
		if seen[b.BusinessID] {
			continue
		}
		seen[b.BusinessID] = true
		deduped = append(deduped, b)
	}

	columns := []string{
		"business_id", "business_name", "business_url", "location",
		"overall_rating", "num_reviews", "categories", "phone_number", "address_line1",
	}

	for start := 0; start < len(deduped); start += r.batchSize {
		end := start + r.batchSize
		if end > len(deduped) {
			end = len(deduped)
		}
		batch := deduped[start:end]

		var values []interface{}
		for _, b := range batch {
			categories, err := json.Marshal(b.Categories)
			if err != nil {
				return errors.NewUpsertFailedError(err)
			}
			values = append(values,
				b.BusinessID, b.BusinessName, b.BusinessURL, b.Location,
				b.OverallRating, b.NumReviews, categories, b.PhoneNumber, b.AddressLine1)
		}

		query := upsertQuery(r.table, columns, len(batch), []string{"business_id", "location"})
		if _, err := r.db.Exec(ctx, query, values...); err != nil {
			return errors.NewUpsertFailedError(err)
		}
		metrics.RecordsUpserted.WithLabelValues(r.table).Add(float64(len(batch)))
	}

	r.logger.Info("Upserted businesses", map[string]interface{}{
		"table": r.table,
		"count": len(deduped),
	})
	return nil
}

// UpsertRecords writes post-harvest attribute state. tagUnion is the
// full tag column set across every record of the run; records missing a
// tag write an explicit zero so stale positives do not linger. The
// caller must have run EnsureTagColumns for tagUnion first.
func (r *Repository) UpsertRecords(ctx context.Context, records []models.Record, tagUnion []string) error {
	if len(records) == 0 {
		return nil
	}

	tags := append([]string(nil), tagUnion...)
	sort.Strings(tags)

	columns := make([]string, 0, 3+len(detailColumns)+len(tags))
	columns = append(columns, "business_id")
	columns = append(columns, detailColumns...)
	columns = append(columns, "last_reviews_count", "errors_at")
	columns = append(columns, tags...)

	for start := 0; start < len(records); start += r.batchSize {
		end := start + r.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		var values []interface{}
		for _, record := range batch {
			rowValues, err := recordValues(record, tags)
			if err != nil {
				return errors.NewUpsertFailedError(err)
			}
			values = append(values, rowValues...)
		}

		query := upsertQuery(r.table, columns, len(batch), []string{"business_id"})
		if _, err := r.db.Exec(ctx, query, values...); err != nil {
			return errors.NewUpsertFailedError(err)
		}
		metrics.RecordsUpserted.WithLabelValues(r.table).Add(float64(len(batch)))
	}
	return nil
}

// MenuUpdate is the persisted outcome of one business's menu harvest.
type MenuUpdate struct {
	BusinessID string
	// MenuURL is nil when the stored URL proved stale and must clear.
	MenuURL     *string
	ScrapedFlag int
	// Menu is nil for a failed harvest.
	Menu models.Menu
}

// UpsertMenus writes menu harvest outcomes.
func (r *Repository) UpsertMenus(ctx context.Context, updates []MenuUpdate) error {
	columns := []string{"business_id", "menu_url", "menu_items_scraped_flag", "menu"}

	for start := 0; start < len(updates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]

		var values []interface{}
		for _, update := range batch {
			var menu interface{}
			if update.Menu != nil {
				raw, err := json.Marshal(update.Menu)
				if err != nil {
					return errors.NewUpsertFailedError(err)
				}
				menu = raw
			}
			values = append(values, update.BusinessID, update.MenuURL, update.ScrapedFlag, menu)
		}

		query := upsertQuery(r.table, columns, len(batch), []string{"business_id"})
		if _, err := r.db.Exec(ctx, query, values...); err != nil {
			return errors.NewUpsertFailedError(err)
		}
		metrics.RecordsUpserted.WithLabelValues(r.table).Add(float64(len(batch)))
	}
	return nil
}

// upsertQuery builds a multi-row INSERT ... ON CONFLICT (business_id)
// DO UPDATE. Columns named in insertOnly keep their stored value on
// conflict.
func upsertQuery(table string, columns []string, rowCount int, insertOnly []string) string {
	rows := make([]string, 0, rowCount)
	arg := 1
	for i := 0; i < rowCount; i++ {
		placeholders := make([]string, 0, len(columns))
		for range columns {
			placeholders = append(placeholders, fmt.Sprintf("$%d", arg))
			arg++
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}

	skip := make(map[string]bool, len(insertOnly))
	for _, column := range insertOnly {
		skip[column] = true
	}
	var assignments []string
	for _, column := range columns {
		if skip[column] {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", column, column))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (business_id) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(rows, ", "),
		strings.Join(assignments, ", "))
}

// recordValues renders one record row in the column order built by
// UpsertRecords.
func recordValues(record models.Record, tags []string) ([]interface{}, error) {
	d := record.Details

	categories, err := json.Marshal(d.Categories)
	if err != nil {
		return nil, err
	}
	topFood, err := json.Marshal(d.TopFoodItems)
	if err != nil {
		return nil, err
	}
	var monthly interface{}
	if d.MonthlyRatingsByYear != nil {
		raw, err := json.Marshal(d.MonthlyRatingsByYear)
		if err != nil {
			return nil, err
		}
		monthly = raw
	}

	values := []interface{}{
		record.BusinessID,
		intPtrValue(d.IsClosed),
		intPtrValue(d.YearEstablished),
		floatPtrValue(d.OverallRating),
		intPtrValue(d.NumReviews),
		stringPtrValue(d.MenuURL),
		stringPtrValue(d.PriceRange),
		stringPtrValue(d.PhoneNumber),
	}
	for _, column := range histogramColumns {
		values = append(values, histogramValue(d.RatingHistogram, column))
	}
	values = append(values,
		stringPtrValue(d.AddressLine1),
		stringPtrValue(d.AddressLine2),
		stringPtrValue(d.AddressLine3),
		stringPtrValue(d.City),
		stringPtrValue(d.RegionCode),
		stringPtrValue(d.PostalCode),
		stringPtrValue(d.CountryCode))
	for _, day := range hourColumns {
		if hours, ok := d.OperationHours["operation_hours_"+day]; ok {
			values = append(values, hours)
		} else {
			values = append(values, nil)
		}
	}
	values = append(values, categories, topFood, monthly)
	values = append(values, record.LastReviewsCount, record.ErrorsAt)
	for _, tag := range tags {
		values = append(values, record.Tags[tag])
	}
	return values, nil
}

func scanRecord(rows *sql.Rows) (models.Record, error) {
	var (
		record   models.Record
		isClosed sql.NullInt64
		yearEst  sql.NullInt64
		rating   sql.NullFloat64
		reviews  sql.NullInt64

		menuURL    sql.NullString
		priceRange sql.NullString
		phone      sql.NullString

		histogram [5]sql.NullInt64
		address   [7]sql.NullString
		hours     [7]sql.NullString

		categories []byte
		topFood    []byte
		monthly    []byte

		lastCount sql.NullInt64
		errorsAt  sql.NullString
		menuFlag  sql.NullInt64
	)

	dest := []interface{}{
		&record.BusinessID, &record.BusinessName, &record.BusinessURL, &record.Location,
		&isClosed, &yearEst, &rating, &reviews,
		&menuURL, &priceRange, &phone,
	}
	for i := range histogram {
		dest = append(dest, &histogram[i])
	}
	for i := range address {
		dest = append(dest, &address[i])
	}
	for i := range hours {
		dest = append(dest, &hours[i])
	}
	dest = append(dest, &categories, &topFood, &monthly, &lastCount, &errorsAt, &menuFlag)

	if err := rows.Scan(dest...); err != nil {
		return models.Record{}, err
	}

	d := models.BusinessDetails{
		IsClosed:        nullIntPtr(isClosed),
		YearEstablished: nullIntPtr(yearEst),
		OverallRating:   nullFloatPtr(rating),
		NumReviews:      nullIntPtr(reviews),
		MenuURL:         nullStringPtr(menuURL),
		PriceRange:      nullStringPtr(priceRange),
		PhoneNumber:     nullStringPtr(phone),
		AddressLine1:    nullStringPtr(address[0]),
		AddressLine2:    nullStringPtr(address[1]),
		AddressLine3:    nullStringPtr(address[2]),
		City:            nullStringPtr(address[3]),
		RegionCode:      nullStringPtr(address[4]),
		PostalCode:      nullStringPtr(address[5]),
		CountryCode:     nullStringPtr(address[6]),
	}

	for i, column := range histogramColumns {
		if histogram[i].Valid {
			if d.RatingHistogram == nil {
				d.RatingHistogram = make(map[string]int)
			}
			d.RatingHistogram[column] = int(histogram[i].Int64)
		}
	}
	for i, day := range hourColumns {
		if hours[i].Valid {
			if d.OperationHours == nil {
				d.OperationHours = make(map[string]string)
			}
			d.OperationHours["operation_hours_"+day] = hours[i].String
		}
	}

	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &d.Categories); err != nil {
			return models.Record{}, err
		}
	}
	if len(topFood) > 0 {
		if err := json.Unmarshal(topFood, &d.TopFoodItems); err != nil {
			return models.Record{}, err
		}
	}
	if len(monthly) > 0 {
		if err := json.Unmarshal(monthly, &d.MonthlyRatingsByYear); err != nil {
			return models.Record{}, err
		}
	}

	record.Details = d
	record.LastReviewsCount = -1
	if lastCount.Valid {
		record.LastReviewsCount = int(lastCount.Int64)
	}
	record.ErrorsAt = "-1"
	if errorsAt.Valid && errorsAt.String != "" {
		record.ErrorsAt = errorsAt.String
	}
	if menuFlag.Valid {
		record.MenuItemsScrapedFlag = int(menuFlag.Int64)
	}
	return record, nil
}

func histogramValue(histogram map[string]int, column string) interface{} {
	if histogram == nil {
		return nil
	}
	if count, ok := histogram[column]; ok {
		return count
	}
	return nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtrValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtrValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtrValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
