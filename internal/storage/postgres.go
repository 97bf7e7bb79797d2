package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"gdoc/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const (
	uniqueViolation  = "23505"
	requirementIndex = "documentos_requisito_uniq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const documentColumns = `
	d.id, d.nombre, d.archivo, d.nombre_archivo, d.content_type, d.tamano_bytes,
	d.fecha_emision, d.fecha_vencimiento, d.estado, d.semaforo_motivos,
	d.texto_extraido, d.numero_documento_usuario, d.fecha_carga, d.estado_revision,
	d.observacion, d.confianza_ocr, d.tipo_validacion,
	COALESCE(d.postulante_id, ''), COALESCE(p.nombres || ' ' || p.apellidos, ''),
	COALESCE(d.convocatoria_id, ''), COALESCE(d.requisito_id, '')`

const documentFrom = `
	FROM documentos d
	LEFT JOIN postulantes p ON p.id = d.postulante_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var issue, expiry sql.NullTime
	var text, number, observation sql.NullString
	var reasons []string
	if err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.ObjectKey,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&issue,
		&expiry,
		&doc.Semaphore,
		pq.Array(&reasons),
		&text,
		&number,
		&doc.UploadedAt,
		&doc.ReviewStatus,
		&observation,
		&doc.OCRConfidence,
		&doc.ValidationType,
		&doc.PostulanteID,
		&doc.ApplicantName,
		&doc.ConvocatoriaID,
		&doc.RequiredDocumentID,
	); err != nil {
		return domain.Document{}, err
	}
	doc.IssueDate = nullDate(issue)
	doc.ExpiryDate = nullDate(expiry)
	doc.SemaphoreReasons = reasons
	if doc.SemaphoreReasons == nil {
		doc.SemaphoreReasons = []string{}
	}
	doc.ExtractedText = nullString(text)
	doc.UserDocumentNumber = nullString(number)
	doc.Observation = nullString(observation)
	return doc, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO documentos (
			nombre, archivo, nombre_archivo, content_type, tamano_bytes,
			fecha_emision, fecha_vencimiento, estado, semaforo_motivos,
			texto_extraido, numero_documento_usuario, fecha_carga, estado_revision,
			observacion, confianza_ocr, tipo_validacion,
			postulante_id, convocatoria_id, requisito_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        NULLIF($17, ''), NULLIF($18, ''), NULLIF($19, ''))
		RETURNING id
	`,
		doc.Name, doc.ObjectKey, doc.Filename, doc.ContentType, doc.SizeBytes,
		dateArg(doc.IssueDate), dateArg(doc.ExpiryDate), doc.Semaphore, pq.Array(nonNil(doc.SemaphoreReasons)),
		doc.ExtractedText, doc.UserDocumentNumber, doc.UploadedAt, doc.ReviewStatus,
		doc.Observation, doc.OCRConfidence, doc.ValidationType,
		doc.PostulanteID, doc.ConvocatoriaID, doc.RequiredDocumentID,
	)
	err := row.Scan(&doc.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == requirementIndex {
		return fmt.Errorf("%s: %w", pqErr.Message, domain.ErrRequirementTaken)
	}
	return err
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+documentFrom+` WHERE d.id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+documentFrom+`
		WHERE ($1::text = '' OR d.postulante_id = $1::text)
		  AND ($2::text = '' OR d.convocatoria_id = $2::text)
		  AND ($3::text = '' OR d.requisito_id = $3::text)
		  AND ($4::text = '' OR d.nombre ILIKE '%' || $4::text || '%'
		       OR d.nombre_archivo ILIKE '%' || $4::text || '%'
		       OR (p.nombres || ' ' || p.apellidos) ILIKE '%' || $4::text || '%')
		ORDER BY d.fecha_carga DESC, d.id DESC
	`, filter.PostulanteID, filter.ConvocatoriaID, filter.RequiredDocumentID, filter.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// EditDocument locks the row, runs fn on it and writes the result in the same
// transaction. Concurrent edits of the document wait for the lock, including
// while fn stores a file.
func (s *PostgresStore) EditDocument(ctx context.Context, id int64, fn func(*domain.Document) error) (domain.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+documentFrom+` WHERE d.id = $1 FOR UPDATE OF d`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	if err := fn(&doc); err != nil {
		return domain.Document{}, err
	}
	doc.ID = id

	res, err := tx.ExecContext(ctx, `
		UPDATE documentos
		SET nombre = $2,
		    archivo = $3,
		    nombre_archivo = $4,
		    content_type = $5,
		    tamano_bytes = $6,
		    fecha_emision = $7,
		    fecha_vencimiento = $8,
		    estado = $9,
		    semaforo_motivos = $10,
		    texto_extraido = $11,
		    numero_documento_usuario = $12,
		    fecha_carga = $13,
		    estado_revision = $14,
		    observacion = $15,
		    confianza_ocr = $16,
		    tipo_validacion = $17,
		    updated_at = NOW()
		WHERE id = $1
	`,
		doc.ID, doc.Name, doc.ObjectKey, doc.Filename, doc.ContentType, doc.SizeBytes,
		dateArg(doc.IssueDate), dateArg(doc.ExpiryDate), doc.Semaphore, pq.Array(nonNil(doc.SemaphoreReasons)),
		doc.ExtractedText, doc.UserDocumentNumber, doc.UploadedAt, doc.ReviewStatus,
		doc.Observation, doc.OCRConfidence, doc.ValidationType,
	)
	if err != nil {
		return domain.Document{}, err
	}
	if err := expectOneRow(res); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documentos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *PostgresStore) InsertAudit(ctx context.Context, documentID int64, state domain.AuditState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (documento_id, state, detail)
		VALUES ($1, $2, $3::jsonb)
	`, documentID, state, string(payload))
	return err
}

func (s *PostgresStore) ListAudit(ctx context.Context, documentID int64) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT documento_id, state, detail, created_at
		FROM audit_log
		WHERE documento_id = $1
		ORDER BY id ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		var detail []byte
		if err := rows.Scan(&entry.DocumentID, &entry.State, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CreateConvocatoria(ctx context.Context, conv domain.Convocatoria) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO convocatorias (id, titulo, descripcion, estado, fecha_inicio, fecha_fin)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, conv.ID, conv.Title, conv.Description, conv.Status, conv.StartDate.Time, conv.EndDate.Time)
	if err != nil {
		return err
	}

	for i, rd := range conv.RequiredDocuments {
		points, err := json.Marshal(nonNilPoints(rd.ReviewPoints))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documentos_requeridos (convocatoria_id, id, posicion, nombre, descripcion, obligatorio, puntos_revision)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		`, conv.ID, rd.ID, i, rd.Name, rd.Description, rd.Mandatory, string(points))
		if err != nil {
			return fmt.Errorf("insert required document %s: %w", rd.ID, err)
		}
	}

	return tx.Commit()
}

const convocatoriaSelect = `
	SELECT c.id, c.titulo, c.descripcion, c.estado, c.fecha_inicio, c.fecha_fin,
	       (SELECT COUNT(*) FROM postulantes p WHERE p.convocatoria_id = c.id)
	FROM convocatorias c`

func (s *PostgresStore) GetConvocatoria(ctx context.Context, id string) (domain.Convocatoria, error) {
	row := s.db.QueryRowContext(ctx, convocatoriaSelect+` WHERE c.id = $1`, id)
	conv, err := scanConvocatoria(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Convocatoria{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Convocatoria{}, err
	}
	byConv, err := s.requiredDocuments(ctx, id)
	if err != nil {
		return domain.Convocatoria{}, err
	}
	conv.RequiredDocuments = nonNilRequired(byConv[id])
	return conv, nil
}

func (s *PostgresStore) ListConvocatorias(ctx context.Context) ([]domain.Convocatoria, error) {
	rows, err := s.db.QueryContext(ctx, convocatoriaSelect+` ORDER BY c.fecha_inicio DESC, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]domain.Convocatoria, 0)
	for rows.Next() {
		conv, err := scanConvocatoria(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byConv, err := s.requiredDocuments(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].RequiredDocuments = nonNilRequired(byConv[convs[i].ID])
	}
	return convs, nil
}

func scanConvocatoria(row rowScanner) (domain.Convocatoria, error) {
	var conv domain.Convocatoria
	var start, end sql.NullTime
	if err := row.Scan(&conv.ID, &conv.Title, &conv.Description, &conv.Status, &start, &end, &conv.ApplicantsCount); err != nil {
		return domain.Convocatoria{}, err
	}
	conv.StartDate = domain.DateOf(start.Time)
	conv.EndDate = domain.DateOf(end.Time)
	return conv, nil
}

// requiredDocuments loads requirements grouped by call, for one call or all when id is empty.
func (s *PostgresStore) requiredDocuments(ctx context.Context, convocatoriaID string) (map[string][]domain.RequiredDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT convocatoria_id, id, nombre, descripcion, obligatorio, puntos_revision
		FROM documentos_requeridos
		WHERE ($1::text = '' OR convocatoria_id = $1::text)
		ORDER BY convocatoria_id, posicion
	`, convocatoriaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.RequiredDocument)
	for rows.Next() {
		var convID string
		var rd domain.RequiredDocument
		var points []byte
		if err := rows.Scan(&convID, &rd.ID, &rd.Name, &rd.Description, &rd.Mandatory, &points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(points, &rd.ReviewPoints); err != nil {
			return nil, fmt.Errorf("decode review points: %w", err)
		}
		out[convID] = append(out[convID], rd)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreatePostulante(ctx context.Context, p domain.Postulante) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO postulantes (
			id, convocatoria_id, nombres, apellidos, tipo_documento, numero_documento,
			email, telefono, direccion, fecha_registro, estado
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.ConvocatoriaID, p.Nombres, p.Apellidos, p.TipoDocumento, p.NumeroDocumento,
		p.Email, p.Telefono, p.Direccion, p.FechaRegistro.Time, p.Status)
	return err
}

const postulanteSelect = `
	SELECT id, convocatoria_id, nombres, apellidos, tipo_documento, numero_documento,
	       email, telefono, direccion, fecha_registro, estado
	FROM postulantes`

func (s *PostgresStore) GetPostulante(ctx context.Context, id string) (domain.Postulante, error) {
	row := s.db.QueryRowContext(ctx, postulanteSelect+` WHERE id = $1`, id)
	p, err := scanPostulante(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Postulante{}, domain.ErrNotFound
	}
	return p, err
}

// ListPostulantes returns the applicants of one call, or all of them when convocatoriaID is empty.
func (s *PostgresStore) ListPostulantes(ctx context.Context, convocatoriaID string) ([]domain.Postulante, error) {
	rows, err := s.db.QueryContext(ctx, postulanteSelect+`
		WHERE ($1::text = '' OR convocatoria_id = $1::text)
		ORDER BY fecha_registro ASC, id ASC
	`, convocatoriaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Postulante, 0)
	for rows.Next() {
		p, err := scanPostulante(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPostulante(row rowScanner) (domain.Postulante, error) {
	var p domain.Postulante
	var registered time.Time
	if err := row.Scan(&p.ID, &p.ConvocatoriaID, &p.Nombres, &p.Apellidos, &p.TipoDocumento, &p.NumeroDocumento,
		&p.Email, &p.Telefono, &p.Direccion, &registered, &p.Status); err != nil {
		return domain.Postulante{}, err
	}
	p.FechaRegistro = domain.DateOf(registered)
	return p, nil
}

func (s *PostgresStore) CountPostulantes(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postulantes`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count postulantes: %w", err)
	}
	return count, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullDate(v sql.NullTime) *domain.Date {
	if !v.Valid {
		return nil
	}
	d := domain.DateOf(v.Time)
	return &d
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func dateArg(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilPoints(v []domain.ReviewPoint) []domain.ReviewPoint {
	if v == nil {
		return []domain.ReviewPoint{}
	}
	return v
}

func nonNilRequired(v []domain.RequiredDocument) []domain.RequiredDocument {
	if v == nil {
		return []domain.RequiredDocument{}
	}
	return v
}
