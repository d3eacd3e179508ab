package bigquery

import "fmt"

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"
	alertsTable       = "category_alerts"
)

// Dataset identifies the project and dataset holding the tables.
type Dataset struct {
	Project string
	Name    string
}

// table returns the fully qualified, backtick-quoted table name.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.Project, d.Name, name)
}
