package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"wm-go/internal/model"
	"wm-go/internal/wm"
)

// SQLiteStore implements the wm.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite catalogue database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// querier is satisfied by *sql.DB and *sql.Tx so the record helpers work
// both standalone and inside the restore transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const itemColumns = "id, name, category, image_path, rating, price, purchase_link, notes, created_at, last_worn"

func scanItem(row interface{ Scan(dest ...any) error }) (*model.ClothingItem, error) {
	var item model.ClothingItem
	var category string
	var price sql.NullFloat64
	var link, notes sql.NullString
	var lastWorn sql.NullInt64

	err := row.Scan(&item.ID, &item.Name, &category, &item.ImagePath, &item.Rating,
		&price, &link, &notes, &item.CreatedAt, &lastWorn)
	if err != nil {
		return nil, err
	}

	item.Category = model.Category(category)
	if price.Valid {
		item.Price = &price.Float64
	}
	if link.Valid {
		item.PurchaseLink = &link.String
	}
	if notes.Valid {
		item.Notes = &notes.String
	}
	if lastWorn.Valid {
		item.LastWorn = &lastWorn.Int64
	}
	return &item, nil
}

func queryItems(q querier, query string, args ...any) ([]model.ClothingItem, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ClothingItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func insertItem(q querier, item *model.ClothingItem) (int64, error) {
	res, err := q.Exec(`INSERT INTO clothing_items
		(name, category, image_path, rating, price, purchase_link, notes, created_at, last_worn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, string(item.Category), item.ImagePath, item.Rating,
		item.Price, item.PurchaseLink, item.Notes, item.CreatedAt, item.LastWorn)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertOutfit(q querier, outfit *model.Outfit) (int64, error) {
	res, err := q.Exec(`INSERT INTO outfits
		(name, description, rating, created_at, last_worn)
		VALUES (?, ?, ?, ?, ?)`,
		outfit.Name, outfit.Description, outfit.Rating, outfit.CreatedAt, outfit.LastWorn)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMembership(q querier, outfitID, itemID int64) error {
	// OR IGNORE keeps duplicate pairs a no-op.
	_, err := q.Exec(`INSERT OR IGNORE INTO outfit_items (outfit_id, item_id) VALUES (?, ?)`,
		outfitID, itemID)
	return err
}

// Clothing item operations

func (s *SQLiteStore) ListClothingItems() ([]model.ClothingItem, error) {
	items, err := queryItems(s.db,
		`SELECT `+itemColumns+` FROM clothing_items ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing clothing items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) GetClothingItem(id int64) (*model.ClothingItem, error) {
	item, err := scanItem(s.db.QueryRow(
		`SELECT `+itemColumns+` FROM clothing_items WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding clothing item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) InsertClothingItem(item *model.ClothingItem) (int64, error) {
	id, err := insertItem(s.db, item)
	if err != nil {
		return 0, fmt.Errorf("inserting clothing item: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateClothingItem(item *model.ClothingItem) error {
	res, err := s.db.Exec(`UPDATE clothing_items SET
		name = ?, category = ?, image_path = ?, rating = ?, price = ?,
		purchase_link = ?, notes = ?, last_worn = ?
		WHERE id = ?`,
		item.Name, string(item.Category), item.ImagePath, item.Rating,
		item.Price, item.PurchaseLink, item.Notes, item.LastWorn, item.ID)
	if err != nil {
		return fmt.Errorf("updating clothing item: %w", err)
	}
	return requireRow(res, "clothing item", item.ID)
}

// DeleteClothingItem deletes the item and its membership rows in one
// transaction. The cascade toward the join table is explicit: affected
// outfits shrink, nothing else is touched.
func (s *SQLiteStore) DeleteClothingItem(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM outfit_items WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("deleting memberships: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM clothing_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting clothing item: %w", err)
	}
	if err := requireRow(res, "clothing item", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) MarkItemWorn(id int64, when int64) error {
	res, err := s.db.Exec(`UPDATE clothing_items SET last_worn = ? WHERE id = ?`, when, id)
	if err != nil {
		return fmt.Errorf("marking item worn: %w", err)
	}
	return requireRow(res, "clothing item", id)
}

func (s *SQLiteStore) FilterClothingItems(filter wm.ItemFilter) ([]model.ClothingItem, error) {
	var conds []string
	var args []any

	if filter.Category != nil {
		conds = append(conds, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.MinRating != nil {
		conds = append(conds, "rating >= ?")
		args = append(args, *filter.MinRating)
	}
	if filter.MaxRating != nil {
		conds = append(conds, "rating <= ?")
		args = append(args, *filter.MaxRating)
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.Search != "" {
		conds = append(conds, "(name LIKE ? OR notes LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + itemColumns + ` FROM clothing_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	switch filter.Sort {
	case wm.SortByRating:
		query += " ORDER BY rating DESC, created_at DESC"
	default:
		query += " ORDER BY created_at DESC, id DESC"
	}

	items, err := queryItems(s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering clothing items: %w", err)
	}
	return items, nil
}

// Outfit operations

func (s *SQLiteStore) ListOutfits() ([]model.Outfit, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, rating, created_at, last_worn
		 FROM outfits ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing outfits: %w", err)
	}
	defer rows.Close()

	outfits := []model.Outfit{}
	for rows.Next() {
		outfit, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("listing outfits: %w", err)
		}
		outfits = append(outfits, *outfit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing outfits: %w", err)
	}

	for i := range outfits {
		members, err := s.outfitMembers(outfits[i].ID)
		if err != nil {
			return nil, err
		}
		outfits[i].ClothingItems = members
	}
	return outfits, nil
}

func (s *SQLiteStore) GetOutfit(id int64) (*model.Outfit, error) {
	outfit, err := scanOutfit(s.db.QueryRow(
		`SELECT id, name, description, rating, created_at, last_worn
		 FROM outfits WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding outfit: %w", err)
	}

	members, err := s.outfitMembers(id)
	if err != nil {
		return nil, err
	}
	outfit.ClothingItems = members
	return outfit, nil
}

func scanOutfit(row interface{ Scan(dest ...any) error }) (*model.Outfit, error) {
	var outfit model.Outfit
	var description sql.NullString
	var lastWorn sql.NullInt64

	err := row.Scan(&outfit.ID, &outfit.Name, &description, &outfit.Rating,
		&outfit.CreatedAt, &lastWorn)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		outfit.Description = &description.String
	}
	if lastWorn.Valid {
		outfit.LastWorn = &lastWorn.Int64
	}
	return &outfit, nil
}

// outfitMembers resolves an outfit's members through the join table.
func (s *SQLiteStore) outfitMembers(outfitID int64) ([]model.ClothingItem, error) {
	items, err := queryItems(s.db,
		`SELECT `+prefixedItemColumns("ci")+`
		 FROM clothing_items ci
		 JOIN outfit_items oi ON oi.item_id = ci.id
		 WHERE oi.outfit_id = ?
		 ORDER BY ci.created_at DESC, ci.id DESC`, outfitID)
	if err != nil {
		return nil, fmt.Errorf("resolving outfit members: %w", err)
	}
	return items, nil
}

func prefixedItemColumns(alias string) string {
	cols := strings.Split(itemColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func (s *SQLiteStore) InsertOutfit(outfit *model.Outfit) (int64, error) {
	id, err := insertOutfit(s.db, outfit)
	if err != nil {
		return 0, fmt.Errorf("inserting outfit: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateOutfit(outfit *model.Outfit) error {
	res, err := s.db.Exec(`UPDATE outfits SET
		name = ?, description = ?, rating = ?, last_worn = ?
		WHERE id = ?`,
		outfit.Name, outfit.Description, outfit.Rating, outfit.LastWorn, outfit.ID)
	if err != nil {
		return fmt.Errorf("updating outfit: %w", err)
	}
	return requireRow(res, "outfit", outfit.ID)
}

// DeleteOutfit deletes the outfit and its membership rows in one
// transaction. Referenced clothing items are never touched.
func (s *SQLiteStore) DeleteOutfit(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM outfit_items WHERE outfit_id = ?`, id); err != nil {
		return fmt.Errorf("deleting memberships: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM outfits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting outfit: %w", err)
	}
	if err := requireRow(res, "outfit", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) MarkOutfitWorn(id int64, when int64) error {
	res, err := s.db.Exec(`UPDATE outfits SET last_worn = ? WHERE id = ?`, when, id)
	if err != nil {
		return fmt.Errorf("marking outfit worn: %w", err)
	}
	return requireRow(res, "outfit", id)
}

// Membership operations

func (s *SQLiteStore) InsertMembership(outfitID, itemID int64) error {
	if err := insertMembership(s.db, outfitID, itemID); err != nil {
		return fmt.Errorf("inserting membership: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveMembership(outfitID, itemID int64) error {
	_, err := s.db.Exec(`DELETE FROM outfit_items WHERE outfit_id = ? AND item_id = ?`,
		outfitID, itemID)
	if err != nil {
		return fmt.Errorf("removing membership: %w", err)
	}
	return nil
}

// Aggregates

func (s *SQLiteStore) Stats() (*wm.Stats, error) {
	stats := &wm.Stats{ItemsPerCategory: make(map[model.Category]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM clothing_items`).Scan(&stats.ItemCount); err != nil {
		return nil, fmt.Errorf("counting clothing items: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outfits`).Scan(&stats.OutfitCount); err != nil {
		return nil, fmt.Errorf("counting outfits: %w", err)
	}

	rows, err := s.db.Query(`SELECT category, COUNT(*) FROM clothing_items GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting per category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("counting per category: %w", err)
		}
		stats.ItemsPerCategory[model.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting per category: %w", err)
	}

	var avgRating, totalValue sql.NullFloat64
	if err := s.db.QueryRow(`SELECT AVG(rating) FROM clothing_items WHERE rating > 0`).Scan(&avgRating); err != nil {
		return nil, fmt.Errorf("averaging ratings: %w", err)
	}
	if err := s.db.QueryRow(`SELECT SUM(price) FROM clothing_items WHERE price IS NOT NULL`).Scan(&totalValue); err != nil {
		return nil, fmt.Errorf("summing prices: %w", err)
	}
	stats.AverageRating = avgRating.Float64
	stats.TotalValue = totalValue.Float64

	recent, err := queryItems(s.db,
		`SELECT `+itemColumns+` FROM clothing_items
		 WHERE last_worn IS NOT NULL ORDER BY last_worn DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("listing recently worn: %w", err)
	}
	stats.RecentlyWorn = recent

	return stats, nil
}

// Restore transaction

// restoreTx implements wm.RestoreTx over a single SQLite transaction.
type restoreTx struct {
	tx *sql.Tx
}

// BeginRestore opens the transaction that spans all inserts of one restore
// run. A store failure mid-restore therefore rolls back to the pre-restore
// state instead of leaving a partial import behind.
func (s *SQLiteStore) BeginRestore() (wm.RestoreTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting restore transaction: %w", err)
	}
	return &restoreTx{tx: tx}, nil
}

func (t *restoreTx) InsertClothingItem(item *model.ClothingItem) (int64, error) {
	return insertItem(t.tx, item)
}

func (t *restoreTx) InsertOutfit(outfit *model.Outfit) (int64, error) {
	return insertOutfit(t.tx, outfit)
}

func (t *restoreTx) InsertMembership(outfitID, itemID int64) error {
	return insertMembership(t.tx, outfitID, itemID)
}

func (t *restoreTx) Commit() error   { return t.tx.Commit() }
func (t *restoreTx) Rollback() error { return t.tx.Rollback() }

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d does not exist", kind, id)
	}
	return nil
}

// Compile-time check that SQLiteStore implements the wm.Store interface.
var _ wm.Store = (*SQLiteStore)(nil)
