package mail

import (
	"html/template"
	"strings"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 10px; overflow: hidden;">
  <div style="background-color: #00E0FF; padding: 20px; text-align: center;">
    <h1 style="color: #000; margin: 0;">Attendance Tracker</h1>
  </div>
  <div style="padding: 30px; background-color: #ffffff; color: #333;">
    <h2 style="margin-top: 0;">Payment Successful</h2>
    <p>Hi <strong>{{.Name}}</strong>,</p>
    <p>Thank you for subscribing to <strong>Pro Access</strong>! Your payment has been successfully processed.</p>
    <div style="background-color: #f8f9fa; border-radius: 8px; padding: 20px; margin: 25px 0;">
      <h3 style="margin-top: 0; border-bottom: 1px solid #ddd; padding-bottom: 10px;">Receipt Details</h3>
      <table style="width: 100%; border-collapse: collapse;">
        <tr>
          <td style="padding: 8px 0; color: #666;">Transaction ID:</td>
          <td style="padding: 8px 0; font-family: monospace; text-align: right;">{{.PaymentID}}</td>
        </tr>
        <tr>
          <td style="padding: 8px 0; color: #666;">Date:</td>
          <td style="padding: 8px 0; text-align: right;">{{.Date}}</td>
        </tr>
        <tr>
          <td style="padding: 8px 0; color: #666;">Amount Paid:</td>
          <td style="padding: 8px 0; text-align: right; font-weight: bold;">{{.Amount}}</td>
        </tr>
        <tr>
          <td style="padding: 8px 0; color: #666;">Subscription:</td>
          <td style="padding: 8px 0; text-align: right;">6 Months (Pro Access)</td>
        </tr>
      </table>
    </div>
    <p>Your subscription is now active. Your dashboard shows the new expiry date.</p>
    <p>Best regards,<br>The Attendance Tracker Team</p>
  </div>
  <div style="background-color: #f4f4f4; padding: 15px; text-align: center; font-size: 12px; color: #888;">
    This is an automated receipt. Please retain it for your records.
  </div>
</div>
`))

func renderReceipt(r Receipt) (string, error) {
	var b strings.Builder
	if err := receiptTmpl.Execute(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}
