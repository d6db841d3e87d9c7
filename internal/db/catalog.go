package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/themobileprof/symptomcheck/internal/catalog"
	"github.com/themobileprof/symptomcheck/internal/knowledge"
)

// ErrNotFound is returned for unknown conditions
var ErrNotFound = catalog.ErrNotFound

// MinSymptomProbability filters weak disease-symptom links out of training data.
const MinSymptomProbability = 0.3

// normalizedName is the SQL form of knowledge.NormalizeID.
const normalizedName = `LOWER(REPLACE(REPLACE(TRIM(d.name), ' ', '_'), '-', '_'))`

// TrainingSamples builds one sample per disease from its strongly linked symptoms
func (db *DB) TrainingSamples(ctx context.Context) ([]knowledge.Sample, error) {
	query := db.rebind(`
		SELECT d.id, d.name, d.severity, COALESCE(d.description, ''), s.name
		FROM diseases d
		JOIN disease_symptoms ds ON d.id = ds.disease_id
		JOIN symptoms s ON ds.symptom_id = s.id
		WHERE ds.probability > $1
		ORDER BY d.id, ds.probability DESC
	`)

	rows, err := db.QueryContext(ctx, query, MinSymptomProbability)
	if err != nil {
		return nil, fmt.Errorf("failed to query training samples: %w", err)
	}
	defer rows.Close()

	var samples []knowledge.Sample
	var current *knowledge.Sample
	var currentID int64 = -1
	var currentDescription string

	flush := func() {
		if current == nil {
			return
		}
		names := make([]string, len(current.Symptoms))
		for i, s := range current.Symptoms {
			names[i] = strings.ReplaceAll(s, "_", " ")
		}
		current.Description = strings.TrimSpace(strings.Join(names, " ") + " " + currentDescription)
		samples = append(samples, *current)
	}

	for rows.Next() {
		var (
			diseaseID   int64
			name        string
			severity    string
			description string
			symptom     string
		)
		if err := rows.Scan(&diseaseID, &name, &severity, &description, &symptom); err != nil {
			return nil, fmt.Errorf("failed to scan training sample: %w", err)
		}
		if diseaseID != currentID {
			flush()
			currentID = diseaseID
			currentDescription = description
			current = &knowledge.Sample{
				Condition: knowledge.NormalizeID(name),
				Severity:  strings.ToLower(severity),
			}
		}
		current.Symptoms = append(current.Symptoms, knowledge.NormalizeID(symptom))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read training samples: %w", err)
	}
	flush()

	return samples, nil
}

// Condition loads a disease with its symptoms, treatments and prevention
func (db *DB) Condition(ctx context.Context, id string) (knowledge.Condition, error) {
	key := knowledge.NormalizeID(id)

	var (
		diseaseID   int64
		c           knowledge.Condition
		description sql.NullString
	)
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT d.id, d.name, d.description
		FROM diseases d
		WHERE `+normalizedName+` = $1
	`), key).Scan(&diseaseID, &c.Name, &description)
	if err == sql.ErrNoRows {
		return knowledge.Condition{}, ErrNotFound
	}
	if err != nil {
		return knowledge.Condition{}, fmt.Errorf("failed to get condition: %w", err)
	}
	c.ID = key
	c.Description = description.String

	if c.Symptoms, err = db.conditionSymptoms(ctx, diseaseID); err != nil {
		return knowledge.Condition{}, err
	}
	if c.Treatment, c.Warnings, err = db.treatments(ctx, diseaseID); err != nil {
		return knowledge.Condition{}, err
	}
	if c.Prevention, err = db.prevention(ctx, diseaseID); err != nil {
		return knowledge.Condition{}, err
	}

	return c, nil
}

func (db *DB) conditionSymptoms(ctx context.Context, diseaseID int64) ([]knowledge.TypicalSymptom, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT s.name, ds.probability
		FROM disease_symptoms ds
		JOIN symptoms s ON ds.symptom_id = s.id
		WHERE ds.disease_id = $1
		ORDER BY ds.probability DESC
	`), diseaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query condition symptoms: %w", err)
	}
	defer rows.Close()

	var out []knowledge.TypicalSymptom
	for rows.Next() {
		var ts knowledge.TypicalSymptom
		if err := rows.Scan(&ts.ID, &ts.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan condition symptom: %w", err)
		}
		ts.ID = knowledge.NormalizeID(ts.ID)
		out = append(out, ts)
	}
	return out, rows.Err()
}

// treatments splits emergency-type treatments out as warning signs.
func (db *DB) treatments(ctx context.Context, diseaseID int64) ([]string, []string, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT treatment_type, description
		FROM treatments
		WHERE disease_id = $1
		ORDER BY priority DESC, id
	`), diseaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query treatments: %w", err)
	}
	defer rows.Close()

	var treatment, warnings []string
	for rows.Next() {
		var kind, description string
		if err := rows.Scan(&kind, &description); err != nil {
			return nil, nil, fmt.Errorf("failed to scan treatment: %w", err)
		}
		if kind == "emergency" {
			warnings = append(warnings, description)
		} else {
			treatment = append(treatment, description)
		}
	}
	return treatment, warnings, rows.Err()
}

func (db *DB) prevention(ctx context.Context, diseaseID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT strategy
		FROM prevention
		WHERE disease_id = $1
		ORDER BY id
	`), diseaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prevention: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan prevention: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ catalog.Provider = (*DB)(nil)
