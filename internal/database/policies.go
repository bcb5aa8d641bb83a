package database

import "gorm.io/gorm"

// Policy statements are idempotent so they can run on every start.
var policyStatements = []string{
	`ALTER TABLE teams ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE contact_submissions ENABLE ROW LEVEL SECURITY`,
	`GRANT SELECT ON teams TO anon, authenticated`,
	`GRANT SELECT, INSERT, UPDATE, DELETE ON teams, contact_submissions TO authenticated`,
	`DROP POLICY IF EXISTS teams_public_read ON teams`,
	`CREATE POLICY teams_public_read ON teams FOR SELECT USING (true)`,
	`DROP POLICY IF EXISTS teams_admin_write ON teams`,
	`CREATE POLICY teams_admin_write ON teams FOR ALL TO authenticated USING (true) WITH CHECK (true)`,
	`DROP POLICY IF EXISTS contact_submissions_admin ON contact_submissions`,
	`CREATE POLICY contact_submissions_admin ON contact_submissions FOR ALL TO authenticated USING (true) WITH CHECK (true)`,
}

// InstallPolicies enables row-level security: anyone may read the roster,
// authenticated principals may manage both tables, and contact inserts go
// through the privileged client. PostgreSQL only.
func InstallPolicies(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range policyStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
