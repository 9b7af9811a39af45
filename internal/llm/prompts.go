package llm

import "fmt"

const academicPrompt = `Bạn là chuyên gia đánh giá học thuật cho chương trình học bổng và vay vốn sinh viên.

Hồ sơ ứng viên:
%s

Hãy đánh giá:
1. Năng lực học tập: GPA, độ khó ngành, hạng trường.
2. Động lực: hoạt động ngoại khóa, việc làm thêm, năm học.
3. Bối cảnh: thu nhập gia đình, người bảo lãnh, khu vực.

Dẫn chứng bằng số liệu cụ thể từ hồ sơ.

Trả lời theo định dạng:
QUYẾT ĐỊNH: APPROVE hoặc REJECT
LÝ DO: <phân tích ngắn gọn>

Hoặc trả về JSON: {"decision":"approve|reject","reason":"..."}`

const financePrompt = `Bạn là chuyên gia thẩm định tín dụng sinh viên, thận trọng với rủi ro.

Hồ sơ khách hàng:
%s

Hãy đánh giá:
1. Khả năng trả nợ: thu nhập hộ gia đình, việc làm thêm.
2. Quy mô khoản vay so với trần cho vay và mục đích vay.
3. Rủi ro: nợ hiện tại, người bảo lãnh.

Trả lời theo định dạng:
QUYẾT ĐỊNH: APPROVE hoặc REJECT
LÝ DO: <phân tích ngắn gọn>

Hoặc trả về JSON: {"decision":"approve|reject","reason":"..."}`

const repredictPrompt = `Bạn là %s. Bạn vừa nhận được phản biện cho đánh giá ban đầu của mình.

Diễn biến phiên thảo luận:
%s

Phản biện: %s
Khuyến nghị của chuyên gia phản biện: %s

Xem xét phản biện có căn cứ hay không, rồi giữ nguyên hoặc thay đổi quyết định.

Trả lời theo định dạng:
QUYẾT ĐỊNH: APPROVE hoặc REJECT
LÝ DO: <vì sao giữ nguyên hoặc thay đổi>`

const critiquePrompt = `Bạn là chuyên gia phản biện độc lập về rủi ro tín dụng sinh viên.
Bạn đang xem xét đánh giá %s.

Quyết định đang xem xét: %s
Lý do được đưa ra: %s
Hồ sơ gốc:
%s

Chỉ ra lỗ hổng trong lập luận, rủi ro bị bỏ qua và góc nhìn ngược lại.

Trả lời theo định dạng:
PHẢN BIỆN: <lập luận phản biện>
KHUYẾN NGHỊ: APPROVE hoặc REJECT

Hoặc trả về JSON: {"critical_response":"...","recommended_decision":"approve|reject"}`

func AcademicPrompt(profile string) string {
	return fmt.Sprintf(academicPrompt, profile)
}

func FinancePrompt(profile string) string {
	return fmt.Sprintf(financePrompt, profile)
}

// RepredictPrompt asks an evaluator to revisit its opinion. role describes
// the evaluator in the second person.
func RepredictPrompt(role, excerpt, critique, recommended string) string {
	return fmt.Sprintf(repredictPrompt, role, excerpt, critique, recommended)
}

// CritiquePrompt frames the review by the kind of evaluation being reviewed.
func CritiquePrompt(subject, decision, reason, profile string) string {
	return fmt.Sprintf(critiquePrompt, subject, decision, reason, profile)
}
