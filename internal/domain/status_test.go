package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContactMethod(t *testing.T) {
	tests := []struct {
		raw  string
		want ContactMethod
	}{
		{"電話", ContactMethodPhone},
		{" TEL ", ContactMethodPhone},
		{"DM", ContactMethodDM},
		{"インスタDM", ContactMethodDM},
		{"LINE", ContactMethodLINE},
		{"メール", ContactMethodEmail},
		{"Email", ContactMethodEmail},
		{"フォーム", ContactMethodForm},
		{"", ContactMethodNone},
		{"なし", ContactMethodNone},
		{"訪問", ContactMethodOther},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContactMethod(tt.raw))
		})
	}
}

func TestContactMethod_IsSend(t *testing.T) {
	assert.True(t, ContactMethodDM.IsSend())
	assert.True(t, ContactMethodLINE.IsSend())
	assert.True(t, ContactMethodEmail.IsSend())
	assert.True(t, ContactMethodForm.IsSend())
	assert.False(t, ContactMethodPhone.IsSend())
	assert.False(t, ContactMethodNone.IsSend())
	assert.False(t, ContactMethodOther.IsSend())
}

func TestInflowPathFor(t *testing.T) {
	assert.Equal(t, "アウトバウンド(電話)", InflowPathFor("phone"))
	assert.Equal(t, "アウトバウンド(DM)", InflowPathFor("DM"))
	assert.Equal(t, "アウトバウンド(訪問)", InflowPathFor(" 訪問 "))
	assert.Equal(t, "", InflowPathFor("なし"))
	assert.Equal(t, "", InflowPathFor(""))
}

func TestParseReplyState(t *testing.T) {
	tests := []struct {
		raw  string
		want ReplyState
	}{
		{"返信あり", Replied},
		{"返信済み", Replied},
		{"返信有り", Replied},
		{"未返信", ReplyNone},
		{"未返信(再送)", ReplyNone},
		{"商談中", Negotiating},
		{"契約", Contracted},
		{"NG", Rejected},
		{"", ReplyUnknown},
		{"保留", ReplyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReplyState(tt.raw))
		})
	}
}

func TestParseFunnelStage(t *testing.T) {
	for _, raw := range []string{"start", "開始", "시작", " START "} {
		st, ok := ParseFunnelStage(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, StageStart, st, raw)
	}
	st, ok := ParseFunnelStage("ゴミ箱")
	assert.True(t, ok)
	assert.Equal(t, StageTrash, st)

	_, ok = ParseFunnelStage("unknown")
	assert.False(t, ok)
}

func TestFunnelStageLabels(t *testing.T) {
	labels := FunnelStageLabels(StageCompleted)
	assert.ElementsMatch(t, []string{"completed", "契約完了", "계약완료"}, labels)
}

func TestHistoryType_ToCustomerHistory(t *testing.T) {
	assert.Equal(t, HistoryCallAttempt, HistoryMissedCall.ToCustomerHistory())
	assert.Equal(t, HistoryCallSuccess, HistoryCallSuccess.ToCustomerHistory())
	assert.Equal(t, HistoryMemo, HistoryMemo.ToCustomerHistory())
	assert.Equal(t, HistoryMemo, HistoryType("legacy").ToCustomerHistory())
}

func TestHistoryType_ValidFor(t *testing.T) {
	assert.True(t, HistoryMissedCall.ValidFor(RetargetingHistory))
	assert.False(t, HistoryMissedCall.ValidFor(CustomerHistory))
	assert.True(t, HistoryContractExtended.ValidFor(CustomerHistory))
	assert.False(t, HistoryContractExtended.ValidFor(RetargetingHistory))
}

func TestSameManager(t *testing.T) {
	assert.True(t, SameManager(" 山﨑 ", "山崎"))
	assert.False(t, SameManager("", ""))
	assert.False(t, SameManager("田中", "佐藤"))
}

func TestParseCustomerStatus(t *testing.T) {
	assert.Equal(t, CustomerTerminated, ParseCustomerStatus("契約解除"))
	assert.Equal(t, CustomerActive, ParseCustomerStatus(""))
	assert.Equal(t, CustomerActive, ParseCustomerStatus("契約中"))
}
