package fastpath

import (
	"context"
	"regexp"
)

// recommendMatcher maps problem-scenario phrasings to fixed course
// recommendations. The situations and answers are maintained by the sales
// team; keep the wording verbatim.
type recommendMatcher struct{}

var recommendations = []struct {
	pattern *regexp.Regexp
	answer  string
}{
	{
		pattern: regexp.MustCompile(`(ทะเลาะ|ขัดแย้ง|ทำงานไม่เป็นทีม|บรรยากาศไม่ดี|ปัญหาในองค์กร)`),
		answer: "จากประสบการณ์ของ MindDoJo แนะนำหลักสูตร:\n" +
			"- **Psychological Safety in Action** → เพื่อสร้างบรรยากาศทีมที่ปลอดภัยในการแสดงความคิดเห็น ลดความขัดแย้งภายในองค์กร\n" +
			"- **Effective Communication** → เพื่อพัฒนาทักษะการฟังและสื่อสารเชิงบวก สร้างความเข้าใจและความร่วมมือในทีม",
	},
	{
		pattern: regexp.MustCompile(`(ผู้นำ|ภาวะผู้นำ)`),
		answer: "จากประสบการณ์ของ MindDoJo แนะนำหลักสูตร:\n" +
			"- **Leadership Mindset** → เพื่อเสริมภาวะผู้นำและการบริหารทีมอย่างมีประสิทธิภาพ\n" +
			"- **Psychological Safety in Action** → เพื่อสร้างความไว้วางใจและบรรยากาศที่เอื้อต่อการนำทีม",
	},
	{
		pattern: regexp.MustCompile(`(นวัตกรรม|ไอเดีย)`),
		answer: "หลักสูตร **Design Thinking**\n" +
			"- คำอธิบาย: หลักสูตรนี้เน้นการพัฒนาทักษะการคิดเชิงออกแบบ (Design Thinking)" +
			"ซึ่งเป็นกระบวนการที่ช่วยให้ผู้เรียนสามารถแก้ไขปัญหาอย่างสร้างสรรค์และมีประสิทธิภาพ\n" +
			"- วัตถุประสงค์: เข้าใจกระบวนการ Design Thinking, สร้างต้นแบบ, ทำงานร่วมกันเชิงสร้างสรรค์\n" +
			"- ระยะเวลา: 1 day\n" +
			"- ราคา: ฝ่ายขาย\n" +
			"- วิทยากร: Songpathara Snidvongs (อ.จี้), นายจีรวัฒน์ เยาวนิช (อ.ต้น), นางสาวนฤมล ล้อมคง (อ.เฟิร์น)",
	},
}

func (m *recommendMatcher) Name() string { return "recommend" }

func (m *recommendMatcher) Resolve(_ context.Context, query string) (string, bool) {
	for _, rec := range recommendations {
		if rec.pattern.MatchString(query) {
			return rec.answer, true
		}
	}
	return "", false
}
