package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
)

// ErrNotificationTimeout is returned when the host notification facility does
// not respond within the bounded wait of the test-notification path. It is
// distinguishable from a display error: the host never answered at all.
var ErrNotificationTimeout = errors.New("notification did not respond in time (check OS notification permissions)")

// Config holds desktop notifier configuration.
type Config struct {
	// AppName is the application name the OS shows as the notification source
	AppName string
	// Title is the notification title for cancellation alerts
	Title string
	// IconPath is the path to the notification icon; empty for no icon
	IconPath string
	// TestTimeoutSeconds bounds the wait of the interactive test notification
	TestTimeoutSeconds int
}

// DefaultConfig returns the notifier configuration used by the Turquoise
// Field shop deployment.
func DefaultConfig() *Config {
	return &Config{
		AppName:            "imweb-cancel-notification",
		Title:              "터콰이즈필드 주문 취소 접수 알림",
		TestTimeoutSeconds: 3,
	}
}

func (c *Config) normalize() {
	if c.AppName == "" {
		c.AppName = "imweb-cancel-notification"
	}
	if c.Title == "" {
		c.Title = "터콰이즈필드 주문 취소 접수 알림"
	}
	if c.TestTimeoutSeconds <= 0 {
		c.TestTimeoutSeconds = 3
	}
}

// Desktop raises persistent desktop notifications through the OS notification
// facility.
type Desktop struct {
	config *Config
	logger *zap.Logger

	// send is the underlying display call; replaced in tests
	send func(title, message string) error
}

// NewDesktop creates a new desktop notifier
func NewDesktop(config *Config, logger *zap.Logger) *Desktop {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()
	beeep.AppName = config.AppName

	d := &Desktop{config: config, logger: logger}
	d.send = func(title, message string) error {
		// Alert-level notifications stay on screen until dismissed.
		return beeep.Alert(title, message, config.IconPath)
	}
	return d
}

// Notify raises a cancellation-request notification referencing the order
// number and, when known, the order total.
func (d *Desktop) Notify(ctx context.Context, alert watch.CancellationAlert) error {
	message := fmt.Sprintf("주문번호 %s 취소가 접수되었습니다. 관리자 페이지에서 승인해 주세요.", alert.OrderNo)
	if !alert.TotalPrice.IsZero() {
		message = fmt.Sprintf("주문번호 %s (결제금액 %s원) 취소가 접수되었습니다. 관리자 페이지에서 승인해 주세요.",
			alert.OrderNo, alert.TotalPrice.StringFixed(0))
	}

	if err := d.send(d.config.Title, message); err != nil {
		return fmt.Errorf("notify: failed to display notification: %w", err)
	}

	d.logger.Debug("Desktop notification displayed", zap.String("order_no", alert.OrderNo))
	return nil
}

// SendTest raises a test notification and waits for the host to answer, up to
// the configured timeout. A timeout reports ErrNotificationTimeout so the
// caller can distinguish "no response" from a display error.
func (d *Desktop) SendTest(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- d.send(d.config.Title+" (테스트)", "이 알림이 보이면 데스크톱 알림이 정상 동작하는 것입니다.")
	}()

	timeout := time.Duration(d.config.TestTimeoutSeconds) * time.Second
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: test notification failed: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return ErrNotificationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure Desktop implements the watch.Notifier interface
var _ watch.Notifier = (*Desktop)(nil)
