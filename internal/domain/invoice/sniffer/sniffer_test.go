package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

func TestDetector_Detect(t *testing.T) {
	d := NewDetector()

	t.Run("detects mobifone by name", func(t *testing.T) {
		text := "TỔNG CÔNG TY VIỄN THÔNG MOBIFONE Hóa đơn giá trị gia tăng"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorMobifone, v)
	})

	t.Run("detects viettel by tax code", func(t *testing.T) {
		text := "MST 0100109106 Hóa đơn dịch vụ viễn thông"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorViettel, v)
	})

	t.Run("detects vnpt", func(t *testing.T) {
		text := "Tập đoàn Bưu chính Viễn thông Việt Nam VNPT hóa đơn GTGT"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorVNPT, v)
	})

	t.Run("most frequent vendor wins", func(t *testing.T) {
		// A Viettel invoice can mention Mobifone numbers in call details.
		text := "viettel viettel hóa đơn cuộc gọi tới mobifone"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorViettel, v)
	})

	t.Run("repeated issuer mentions beat distinct rival markers", func(t *testing.T) {
		// Two distinct Mobifone markers (name and tax code), one each,
		// against one Viettel marker repeated on every detail line.
		text := "viettel cước gọi mobifone MST 0100686209 " +
			"viettel viettel viettel viettel"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorViettel, v)
	})

	t.Run("fuzzy fallback on mangled text", func(t *testing.T) {
		// Duplicated glyph from a bad text layer; no exact marker hit.
		text := "hóa đơn mobiifone cước tháng 12"
		v, err := d.Detect(text)
		require.NoError(t, err)
		assert.Equal(t, invoice.VendorMobifone, v)
	})

	t.Run("unknown vendor errors", func(t *testing.T) {
		_, err := d.Detect("hóa đơn tiền điện EVN tháng 12")
		assert.ErrorIs(t, err, ErrUnknownVendor)
	})
}
