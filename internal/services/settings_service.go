package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"

	"github.com/wingopay/backend/internal/audit"
	"github.com/wingopay/backend/internal/models"
)

// SettingsService manages the platform payment settings shown to players
// on the deposit screen. There is a single settings row; updates overwrite it.
type SettingsService struct {
	db    *sql.DB
	redis *redis.Client
	audit *audit.Logger
}

func NewSettingsService(db *sql.DB, redisClient *redis.Client, auditLogger *audit.Logger) *SettingsService {
	return &SettingsService{
		db:    db,
		redis: redisClient,
		audit: auditLogger,
	}
}

// Get returns the current payment settings.
func (s *SettingsService) Get(ctx context.Context) (*models.PaymentSettings, error) {
	var settings models.PaymentSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT upi_id, qr_code_url, updated_by, updated_at
		FROM payment_settings WHERE id = 1`).
		Scan(&settings.UPIID, &settings.QRCodeURL, &settings.UpdatedBy, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.PaymentSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment settings: %w", err)
	}
	return &settings, nil
}

// Update replaces the payment settings and invalidates the cached QR image.
func (s *SettingsService) Update(ctx context.Context, upiID, qrCodeURL, adminID string) (*models.PaymentSettings, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_settings (id, upi_id, qr_code_url, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			upi_id = EXCLUDED.upi_id,
			qr_code_url = EXCLUDED.qr_code_url,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`,
		upiID, qrCodeURL, adminID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment settings: %w", err)
	}

	if s.redis != nil {
		s.redis.Del(ctx, upiQRCacheKey)
	}

	s.audit.LogPlayerAction("", adminID, "payment_settings_updated", upiID, 0)

	return &models.PaymentSettings{
		UPIID:     upiID,
		QRCodeURL: qrCodeURL,
		UpdatedBy: adminID,
		UpdatedAt: now,
	}, nil
}

const upiQRCacheKey = "settings:upi_qr"

// DepositInfo bundles what the deposit screen needs: the UPI id, the
// admin-uploaded QR url if any, and a generated UPI intent QR as a
// base64 PNG so the client can render one even without an uploaded image.
type DepositInfo struct {
	UPIID     string `json:"upi_id"`
	QRCodeURL string `json:"qr_code_url,omitempty"`
	QRImage   string `json:"qr_image,omitempty"`
}

// DepositInfo returns the player-facing payment info. The generated QR
// image is cached in redis until the settings change.
func (s *SettingsService) DepositInfo(ctx context.Context) (*DepositInfo, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	info := &DepositInfo{
		UPIID:     settings.UPIID,
		QRCodeURL: settings.QRCodeURL,
	}
	if settings.UPIID == "" {
		return info, nil
	}

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, upiQRCacheKey).Result(); err == nil && cached != "" {
			info.QRImage = cached
			return info, nil
		}
	}

	image, err := generateUPIQR(settings.UPIID)
	if err != nil {
		// The UPI id alone is still usable; skip the image.
		return info, nil
	}
	info.QRImage = image

	if s.redis != nil {
		s.redis.Set(ctx, upiQRCacheKey, image, 24*time.Hour)
	}

	return info, nil
}

func generateUPIQR(upiID string) (string, error) {
	intent := fmt.Sprintf("upi://pay?pa=%s&cu=INR", url.QueryEscape(upiID))

	qr, err := qrcode.New(intent, qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
