// Package store is the Postgres persistence for projects and offers.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/models"
	"seo-offers/internal/offer"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const projectColumns = `p.id, p.owner_user_id, p.domain_url, p.industry, p.cities, p.selected_keywords,
	p.selected_package, p.status, p.created_at, p.updated_at`

const offerColumns = `o.id, o.project_id, o.customer_email, o.customer_phone, o.customer_message,
	o.estimated_pages, o.estimated_links, o.estimated_months, o.monthly_price, o.package,
	o.status, o.admin_notes, o.sent_at, o.created_at, o.updated_at`

// Store reads and writes projects and offers. Each call is a single statement;
// there are no multi-statement transactions.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// ==========================
// Projects
// ==========================

func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_user_id, domain_url, industry, cities, selected_keywords,
			selected_package, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OwnerUserID, p.DomainURL, p.Industry, pq.Array(p.Cities), pq.Array(p.SelectedKeywords),
		string(p.SelectedPackage), string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return models.Project{}, errors.NewDatabaseInsertFailedError("project", err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	if err := checkID("project", id); err != nil {
		return models.Project{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id)
	p, err := scanProject(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Project{}, errors.NewResourceNotFoundError("project", "id: "+id)
	}
	if err != nil {
		return models.Project{}, errors.NewQueryExecutionFailedError("get_project", err)
	}
	return p, nil
}

// ListProjects returns the owner's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects p WHERE p.owner_user_id = $1 ORDER BY p.created_at DESC`, ownerID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_projects", err)
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_projects", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_projects", err)
	}
	return out, nil
}

// UpdateProject writes only the fields set on the patch and returns the
// stored project.
func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if err := checkID("project", id); err != nil {
		return models.Project{}, err
	}
	if patch.IsEmpty() {
		return s.GetProject(ctx, id)
	}

	var (
		sets []string
		args = []interface{}{id}
	)
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.DomainURL.Set {
		set("domain_url", patch.DomainURL.Value)
	}
	if patch.Industry.Set {
		set("industry", patch.Industry.Value)
	}
	if patch.Cities.Set {
		set("cities", pq.Array(nonNil(patch.Cities.Value)))
	}
	if patch.SelectedKeywords.Set {
		set("selected_keywords", pq.Array(nonNil(patch.SelectedKeywords.Value)))
	}
	if patch.SelectedPackage.Set {
		set("selected_package", string(patch.SelectedPackage.Value))
	}
	if patch.Status.Set {
		set("status", string(patch.Status.Value))
	}
	set("updated_at", s.now().UTC())

	row := s.db.QueryRowContext(ctx,
		`UPDATE projects AS p SET `+strings.Join(sets, ", ")+` WHERE p.id = $1 RETURNING `+projectColumns, args...)
	p, err := scanProject(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.Project{}, errors.NewResourceNotFoundError("project", "id: "+id)
	}
	if err != nil {
		return models.Project{}, errors.NewQueryExecutionFailedError("update_project", err)
	}
	return p, nil
}

// ==========================
// Offers
// ==========================

func (s *Store) CreateOffer(ctx context.Context, o models.Offer) (models.Offer, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offers (id, project_id, customer_email, customer_phone, customer_message,
			estimated_pages, estimated_links, estimated_months, monthly_price, package,
			status, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.ProjectID, o.CustomerEmail, o.CustomerPhone, o.CustomerMessage,
		o.EstimatedPages, o.EstimatedLinks, o.EstimatedMonths, o.MonthlyPrice, string(o.Package),
		string(o.Status), o.AdminNotes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return models.Offer{}, errors.NewDatabaseInsertFailedError("offer", err)
	}
	return o, nil
}

// GetOffer returns the offer with its project.
func (s *Store) GetOffer(ctx context.Context, id string) (models.OfferWithProject, error) {
	if err := checkID("offer", id); err != nil {
		return models.OfferWithProject{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`, `+projectColumns+`
		FROM offers o JOIN projects p ON p.id = o.project_id
		WHERE o.id = $1`, id)

	owp, err := scanOfferWithProject(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.OfferWithProject{}, errors.NewResourceNotFoundError("offer", "id: "+id)
	}
	if err != nil {
		return models.OfferWithProject{}, errors.NewQueryExecutionFailedError("get_offer", err)
	}
	return owp, nil
}

// ListOffers returns offers newest first. Search matches the customer email
// or the project domain, case-insensitively.
func (s *Store) ListOffers(ctx context.Context, filter models.OfferFilter) ([]models.OfferWithProject, error) {
	var (
		conds []string
		args  []interface{}
	)
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(o.customer_email ILIKE $%d OR p.domain_url ILIKE $%d)", n, n))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}

	query := `SELECT ` + offerColumns + `, ` + projectColumns + `
		FROM offers o JOIN projects p ON p.id = o.project_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_offers", err)
	}
	defer rows.Close()

	out := []models.OfferWithProject{}
	for rows.Next() {
		owp, err := scanOfferWithProject(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_offers", err)
		}
		out = append(out, owp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_offers", err)
	}
	return out, nil
}

// UpdateOfferStatus sets the review status. notes replaces the admin notes
// when non-nil.
func (s *Store) UpdateOfferStatus(ctx context.Context, id string, status models.OfferStatus, notes *string) error {
	if !status.IsValid() {
		return errors.NewValidationError("status", fmt.Sprintf("unknown offer status %q", status))
	}
	if err := checkID("offer", id); err != nil {
		return err
	}

	var notesArg sql.NullString
	if notes != nil {
		notesArg = sql.NullString{String: *notes, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE offers SET status = $2, admin_notes = COALESCE($3, admin_notes), updated_at = $4
		WHERE id = $1`,
		id, string(status), notesArg, s.now().UTC(),
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update_offer_status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewResourceNotFoundError("offer", "id: "+id)
	}
	return nil
}

// MarkOfferSent records when the offer email went out.
func (s *Store) MarkOfferSent(ctx context.Context, id string, at time.Time) error {
	if err := checkID("offer", id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET sent_at = $2, updated_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark_offer_sent", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewResourceNotFoundError("offer", "id: "+id)
	}
	return nil
}

// Stats aggregates the admin dashboard figures. total_value sums the catalog
// price of each offer's package; unknown packages count as zero.
func (s *Store) Stats(ctx context.Context) (models.OfferStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT package, status, COUNT(*) FROM offers GROUP BY package, status`)
	if err != nil {
		return models.OfferStats{}, errors.NewQueryExecutionFailedError("offer_stats", err)
	}
	defer rows.Close()

	var stats models.OfferStats
	for rows.Next() {
		var (
			pkg, status string
			count       int
		)
		if err := rows.Scan(&pkg, &status, &count); err != nil {
			return models.OfferStats{}, errors.NewQueryExecutionFailedError("offer_stats", err)
		}
		stats.TotalOffers += count
		if models.OfferStatus(status) == models.OfferPending {
			stats.PendingOffers += count
		}
		if p, ok := offer.Lookup(models.PackageTier(pkg)); ok {
			stats.TotalValue += p.MonthlyPrice * count
		}
	}
	if err := rows.Err(); err != nil {
		return models.OfferStats{}, errors.NewQueryExecutionFailedError("offer_stats", err)
	}

	if stats.TotalOffers > 0 {
		decided := float64(stats.TotalOffers - stats.PendingOffers)
		stats.ConversionRate = int(math.Round(decided / float64(stats.TotalOffers) * 100))
	}
	return stats, nil
}

// ==========================
// Scanning
// ==========================

func scanProject(row scanner) (models.Project, error) {
	var (
		p              models.Project
		pkg, status    string
		cities, kwords pq.StringArray
	)
	err := row.Scan(&p.ID, &p.OwnerUserID, &p.DomainURL, &p.Industry, &cities, &kwords,
		&pkg, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	p.Cities = nonNil(cities)
	p.SelectedKeywords = nonNil(kwords)
	p.SelectedPackage = models.PackageTier(pkg)
	p.Status = models.ProjectStatus(status)
	return p, nil
}

func scanOfferWithProject(row scanner) (models.OfferWithProject, error) {
	var (
		o              models.Offer
		p              models.Project
		oPkg, oStatus  string
		pPkg, pStatus  string
		sentAt         sql.NullTime
		cities, kwords pq.StringArray
	)
	err := row.Scan(
		&o.ID, &o.ProjectID, &o.CustomerEmail, &o.CustomerPhone, &o.CustomerMessage,
		&o.EstimatedPages, &o.EstimatedLinks, &o.EstimatedMonths, &o.MonthlyPrice, &oPkg,
		&oStatus, &o.AdminNotes, &sentAt, &o.CreatedAt, &o.UpdatedAt,
		&p.ID, &p.OwnerUserID, &p.DomainURL, &p.Industry, &cities, &kwords,
		&pPkg, &pStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.OfferWithProject{}, err
	}

	o.Package = models.PackageTier(oPkg)
	o.Status = models.OfferStatus(oStatus)
	if sentAt.Valid {
		t := sentAt.Time
		o.SentAt = &t
	}
	p.Cities = nonNil(cities)
	p.SelectedKeywords = nonNil(kwords)
	p.SelectedPackage = models.PackageTier(pPkg)
	p.Status = models.ProjectStatus(pStatus)

	return models.OfferWithProject{Offer: o, Project: &p}, nil
}

// checkID reports ids that cannot match a uuid column as not found.
func checkID(resource, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewResourceNotFoundError(resource, "id: "+id)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
