package repositories

import (
	"database/sql"
	"fmt"
)

// checkAffectedRows маппит "0 затронутых строк" в доменную ошибку "не найдено".
func checkAffectedRows(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	switch {
	case err != nil:
		return fmt.Errorf("failed to check affected rows: %w", err)
	case n == 0:
		return notFound
	}
	return nil
}
