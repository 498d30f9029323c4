package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
	"sync"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

var (
	mailService *MailService
	mailOnce    sync.Once
)

// GetMailService 获取单例邮件服务
func GetMailService() *MailService {
	mailOnce.Do(func() {
		mailService = NewMailService()
	})
	return mailService
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: ISPmedia 通讯员 <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

// SendCommentPendingEmail 提醒曲目作者有新评论等待审核
func (s *MailService) SendCommentPendingEmail(email, commenter, trackTitle, content string) {
	body := fmt.Sprintf(`<p>%s 评论了你的曲目《%s》：</p>
<blockquote>%s</blockquote>
<p>评论需要你审核通过后才会公开展示，请前往审核。</p>`, commenter, trackTitle, content)
	s.sendAsync([]string{email}, "💬 [ISPmedia] 有新评论等待审核", body)
}

// SendWelcomeEmail 注册欢迎邮件
func (s *MailService) SendWelcomeEmail(email, username string) {
	body := fmt.Sprintf(`<p>%s，欢迎加入 ISPmedia！</p>
<p>上传你的第一首曲目，或者去发现别人的音乐吧。</p>`, username)
	s.sendAsync([]string{email}, "🎧 欢迎加入 ISPmedia", body)
}
