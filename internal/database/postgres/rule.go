package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncline/syncline/internal/domain"
)

const ruleColumns = `id, name, description, action, timing, type, conditions, configuration, rule_order, is_enabled, created_at, updated_at`

// RuleRepository persists pipeline rules
type RuleRepository struct {
	db *pgxpool.Pool
}

// NewRuleRepository creates a new PostgreSQL rule repository
func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var (
		rule          domain.Rule
		conditions    []byte
		configuration []byte
	)
	err := row.Scan(&rule.ID, &rule.Name, &rule.Description, &rule.Action, &rule.Timing, &rule.Type,
		&conditions, &configuration, &rule.Order, &rule.IsEnabled, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		rule.Conditions = conditions
	}
	if err := unmarshalJSON(configuration, &rule.Configuration); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule configuration: %w", err)
	}
	return &rule, nil
}

// GetByID returns the rule with the given id
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// GetByIDs resolves a set of rule references. Ids without a matching row
// are absent from the result.
func (r *RuleRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Rule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// List returns all rules ordered by pipeline order, then name
func (r *RuleRepository) List(ctx context.Context) ([]domain.Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY rule_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// Save creates or updates a rule
func (r *RuleRepository) Save(ctx context.Context, rule *domain.Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	configuration, err := marshalJSON(rule.Configuration, "{}")
	if err != nil {
		return err
	}
	var conditions []byte
	if len(rule.Conditions) > 0 && string(rule.Conditions) != "null" {
		conditions = rule.Conditions
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO rules (id, name, description, action, timing, type, conditions, configuration, rule_order, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			action = EXCLUDED.action,
			timing = EXCLUDED.timing,
			type = EXCLUDED.type,
			conditions = EXCLUDED.conditions,
			configuration = EXCLUDED.configuration,
			rule_order = EXCLUDED.rule_order,
			is_enabled = EXCLUDED.is_enabled,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		rule.ID, rule.Name, rule.Description, rule.Action, rule.Timing, rule.Type,
		conditions, configuration, rule.Order, rule.IsEnabled)

	if err := row.Scan(&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}
	return nil
}
