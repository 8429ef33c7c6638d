package domain

import "strings"

// ============================================
// Contact method
// ============================================

// ContactMethod how a ContactRecord reached the prospect. Stored values are the
// canonical Japanese labels.
type ContactMethod string

const (
	ContactMethodNone  ContactMethod = ""
	ContactMethodPhone ContactMethod = "電話"
	ContactMethodDM    ContactMethod = "DM"
	ContactMethodLINE  ContactMethod = "LINE"
	ContactMethodEmail ContactMethod = "メール"
	ContactMethodForm  ContactMethod = "フォーム"
	ContactMethodOther ContactMethod = "その他"
)

var contactMethodAliases = map[string]ContactMethod{
	"電話":     ContactMethodPhone,
	"phone":  ContactMethodPhone,
	"tel":    ContactMethodPhone,
	"전화":     ContactMethodPhone,
	"dm":     ContactMethodDM,
	"インスタdm": ContactMethodDM,
	"line":   ContactMethodLINE,
	"メール":    ContactMethodEmail,
	"mail":   ContactMethodEmail,
	"email":  ContactMethodEmail,
	"e-mail": ContactMethodEmail,
	"フォーム":   ContactMethodForm,
	"form":   ContactMethodForm,
	"問い合わせフォーム": ContactMethodForm,
	"なし":     ContactMethodNone,
	"없음":     ContactMethodNone,
}

// ParseContactMethod maps stored or legacy labels onto the closed set.
// Unrecognized non-blank input becomes ContactMethodOther.
func ParseContactMethod(raw string) ContactMethod {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ContactMethodNone
	}
	if m, ok := contactMethodAliases[s]; ok {
		return m
	}
	return ContactMethodOther
}

// IsPhone phone outreach
func (m ContactMethod) IsPhone() bool { return m == ContactMethodPhone }

// IsSend message-style outreach: DM, LINE, email or form.
func (m ContactMethod) IsSend() bool {
	switch m {
	case ContactMethodDM, ContactMethodLINE, ContactMethodEmail, ContactMethodForm:
		return true
	}
	return false
}

// InflowPath label recorded on a PipelineCustomer promoted from a record
// contacted this way. Empty when there was no contact method.
func InflowPathFor(raw string) string {
	m := ParseContactMethod(raw)
	switch m {
	case ContactMethodNone:
		return ""
	case ContactMethodOther:
		return "アウトバウンド(" + strings.TrimSpace(raw) + ")"
	}
	return "アウトバウンド(" + string(m) + ")"
}

// ============================================
// Contact status (reply state)
// ============================================

// ReplyState classification of the free-text ContactRecord status.
type ReplyState int

const (
	ReplyUnknown ReplyState = iota
	ReplyNone               // 未返信 and variants
	Replied                 // 返信あり / 返信済み / 返信有り
	Negotiating             // 商談中
	Contracted              // 契約
	Rejected                // NG
)

// Canonical status labels written by this service.
const (
	StatusNotReplied  = "未返信"
	StatusReplied     = "返信あり"
	StatusNegotiating = "商談中"
	StatusContracted  = "契約"
	StatusRejected    = "NG"
)

// ParseReplyState classifies a stored status. Anything starting with 未返信 is
// unreplied even though it contains 返信.
func ParseReplyState(raw string) ReplyState {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return ReplyUnknown
	case strings.HasPrefix(s, StatusNotReplied):
		return ReplyNone
	case strings.Contains(s, "返信"):
		return Replied
	case s == StatusNegotiating:
		return Negotiating
	case s == StatusContracted:
		return Contracted
	case strings.EqualFold(s, StatusRejected):
		return Rejected
	}
	return ReplyUnknown
}

// ============================================
// Funnel stage
// ============================================

// FunnelStage PipelineCustomer progress. Stored as the code.
type FunnelStage string

const (
	StageStart     FunnelStage = "start"
	StageAwareness FunnelStage = "awareness"
	StageInterest  FunnelStage = "interest"
	StageDesire    FunnelStage = "desire"
	StageCompleted FunnelStage = "completed"
	StageTrash     FunnelStage = "trash"
)

// FunnelStages in funnel order (trash last).
var FunnelStages = []FunnelStage{StageStart, StageAwareness, StageInterest, StageDesire, StageCompleted, StageTrash}

var funnelAliases = map[string]FunnelStage{
	"start": StageStart, "開始": StageStart, "시작": StageStart,
	"awareness": StageAwareness, "認知": StageAwareness, "인지": StageAwareness,
	"interest": StageInterest, "興味": StageInterest, "흥미": StageInterest,
	"desire": StageDesire, "欲求": StageDesire, "욕망": StageDesire,
	"completed": StageCompleted, "契約完了": StageCompleted, "계약완료": StageCompleted,
	"trash": StageTrash, "ゴミ箱": StageTrash, "휴지통": StageTrash,
}

// ParseFunnelStage accepts codes and legacy Japanese/Korean labels.
func ParseFunnelStage(raw string) (FunnelStage, bool) {
	st, ok := funnelAliases[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

// FunnelStageLabels legacy labels per stage, used to match rows written before
// codes were stored.
func FunnelStageLabels(st FunnelStage) []string {
	var out []string
	for label, s := range funnelAliases {
		if s == st {
			out = append(out, label)
		}
	}
	return out
}

// ============================================
// Customer status
// ============================================

type CustomerStatus string

const (
	CustomerActive     CustomerStatus = "契約中"
	CustomerTerminated CustomerStatus = "契約解除"
)

// ParseCustomerStatus defaults unknown input to active.
func ParseCustomerStatus(raw string) CustomerStatus {
	switch strings.TrimSpace(raw) {
	case string(CustomerTerminated), "terminated", "계약해지":
		return CustomerTerminated
	}
	return CustomerActive
}

// ============================================
// History types
// ============================================

type HistoryType string

const (
	HistoryMissedCall       HistoryType = "missed_call"
	HistoryCallAttempt      HistoryType = "call_attempt"
	HistoryCallSuccess      HistoryType = "call_success"
	HistoryKakao            HistoryType = "kakao"
	HistoryMemo             HistoryType = "memo"
	HistoryStatusChange     HistoryType = "status_change"
	HistoryContractExtended HistoryType = "contract_extended"
)

var streamTypes = map[HistoryStream][]HistoryType{
	RetargetingHistory: {HistoryMissedCall, HistoryCallSuccess, HistoryKakao, HistoryMemo, HistoryStatusChange},
	CustomerHistory:    {HistoryCallAttempt, HistoryCallSuccess, HistoryKakao, HistoryMemo, HistoryStatusChange, HistoryContractExtended},
}

// ValidFor reports whether t may be written to stream s.
func (t HistoryType) ValidFor(s HistoryStream) bool {
	for _, v := range streamTypes[s] {
		if v == t {
			return true
		}
	}
	return false
}

// ToCustomerHistory remaps a retargeting history type when entries are copied on
// conversion. Types without a customer-side equivalent become memo.
func (t HistoryType) ToCustomerHistory() HistoryType {
	if t == HistoryMissedCall {
		return HistoryCallAttempt
	}
	if t.ValidFor(CustomerHistory) {
		return t
	}
	return HistoryMemo
}
