// Package fixtures materializes the SQL model fixtures the harness
// scenarios analyze. Every fixture represents one realistic defect
// pattern found in dbt pull requests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is the scoped directory fixtures are written into,
// relative to the working directory.
const DefaultDir = "test_models"

// Ext is the file extension shared by every fixture. Teardown removes
// exactly the files carrying this extension.
const Ext = ".sql"

// Files maps fixture file names to their literal SQL content.
// The set is fixed: a breaking column rename, a performance regression
// (full refresh plus an unconstrained cross join), an undocumented
// aggregation, and a well-structured incremental model.
var Files = map[string]string{
	"breaking_change.sql": `
-- This model changes a critical column name
SELECT
    id as customer_id,  -- BREAKING: was 'id'
    email as contact_email,  -- BREAKING: was 'email'
    created_at
FROM {{ ref('stg_customers') }}
`,
	"performance_issue.sql": `
{{ config(
    materialized='table'  -- ISSUE: Was incremental, now full refresh
) }}

SELECT
    e.*,
    c.*
FROM {{ ref('fct_events') }} e
CROSS JOIN {{ ref('dim_customers') }} c  -- ISSUE: Cartesian join!
WHERE e.event_date >= '2020-01-01'
`,
	"undocumented_model.sql": `
-- No documentation, no tests
SELECT
    user_id,
    sum(amount) as total_spent,
    count(*) as order_count
FROM {{ ref('fct_orders') }}
GROUP BY user_id
`,
	"well_structured.sql": `
{{
    config(
        materialized='incremental',
        unique_key='order_id',
        on_schema_change='fail'
    )
}}

-- Well documented model with proper incremental logic
SELECT
    order_id,
    customer_id,
    order_date,
    amount,
    _loaded_at
FROM {{ ref('stg_orders') }}

{% if is_incremental() %}
WHERE _loaded_at > (SELECT MAX(_loaded_at) FROM {{ this }})
{% endif %}
`,
}

// Prepare creates dir (it may already exist) and writes every fixture
// into it. It returns the directory path for reuse when building
// scenario file lists.
func Prepare(dir string) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create fixture directory %q: %w", dir, err)
	}
	for name, content := range Files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			// Dir exists by now; return it so the caller can tear down
			// whatever was partially written.
			return dir, fmt.Errorf("write fixture %q: %w", path, err)
		}
	}
	return dir, nil
}

// Teardown removes every fixture file from dir, then the directory
// itself. The directory must contain nothing but fixture files by then;
// a leftover foreign file makes the final remove fail, which is
// reported rather than masked.
func Teardown(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fixture directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove fixture %q: %w", path, err)
		}
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("remove fixture directory %q: %w", dir, err)
	}
	return nil
}
