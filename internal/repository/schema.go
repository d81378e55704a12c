package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	receiptsTable         = "receipts"
	sheetConnectionsTable = "sheet_connections"
	usageLogsTable        = "usage_logs"
)

// Dates are stored as YYYY-MM-DD text and timestamps as fixed-width UTC text,
// so both sort lexically the same way on postgres and sqlite.
var (
	receiptColumnDefs = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeString},
		{Name: "image_url", Type: field.TypeString},
		{Name: "vendor", Type: field.TypeString, Nullable: true},
		{Name: "amount", Type: field.TypeFloat64, Nullable: true},
		{Name: "date", Type: field.TypeString, Nullable: true, Size: 10},
		{Name: "category", Type: field.TypeString, Nullable: true},
		{Name: "tax_amount", Type: field.TypeFloat64, Nullable: true},
		{Name: "payment_method", Type: field.TypeString, Nullable: true},
		{Name: "notes", Type: field.TypeString, Nullable: true},
		{Name: "raw_ocr_data", Type: field.TypeString, Nullable: true},
		{Name: "sheet_id", Type: field.TypeString, Nullable: true},
		{Name: "sheet_row_id", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeString},
		{Name: "updated_at", Type: field.TypeString},
	}
	ReceiptsTable = &schema.Table{
		Name:       receiptsTable,
		Columns:    receiptColumnDefs,
		PrimaryKey: []*schema.Column{receiptColumnDefs[0]},
		Indexes: []*schema.Index{
			{Name: "receipts_user_id_date", Columns: []*schema.Column{receiptColumnDefs[1], receiptColumnDefs[5]}},
		},
	}

	sheetConnectionColumnDefs = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeString},
		{Name: "sheet_id", Type: field.TypeString},
		{Name: "sheet_name", Type: field.TypeString},
		{Name: "sheet_url", Type: field.TypeString, Nullable: true},
		{Name: "template_type", Type: field.TypeString, Nullable: true},
		{Name: "is_default", Type: field.TypeBool, Default: false},
		{Name: "access_token", Type: field.TypeString, Nullable: true},
		{Name: "refresh_token", Type: field.TypeString, Nullable: true},
		{Name: "token_expiry", Type: field.TypeString, Nullable: true},
		{Name: "last_sync_at", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeString},
	}
	SheetConnectionsTable = &schema.Table{
		Name:       sheetConnectionsTable,
		Columns:    sheetConnectionColumnDefs,
		PrimaryKey: []*schema.Column{sheetConnectionColumnDefs[0]},
		Indexes: []*schema.Index{
			{Name: "sheet_connections_user_id_sheet_id", Unique: true, Columns: []*schema.Column{sheetConnectionColumnDefs[1], sheetConnectionColumnDefs[2]}},
		},
	}

	usageLogColumnDefs = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "user_id", Type: field.TypeString},
		{Name: "action", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeString},
	}
	UsageLogsTable = &schema.Table{
		Name:       usageLogsTable,
		Columns:    usageLogColumnDefs,
		PrimaryKey: []*schema.Column{usageLogColumnDefs[0]},
		Indexes: []*schema.Index{
			{Name: "usage_logs_user_id_action_created_at", Columns: []*schema.Column{usageLogColumnDefs[1], usageLogColumnDefs[2], usageLogColumnDefs[3]}},
		},
	}

	Tables = []*schema.Table{ReceiptsTable, SheetConnectionsTable, UsageLogsTable}
)

// Migrate creates or alters the tables to match Tables. It never drops columns.
func (db *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(db.drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		db.logger.Error("failed to run migrations", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	db.logger.Info("database schema up to date", "tables", len(Tables))
	return nil
}
