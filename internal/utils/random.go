package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// GenerateWorkerIDFromChineseName 取姓名每个字拼音的首字母再加上四位数字
func GenerateWorkerIDFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	workerID := ""

	for _, py := range pinyinArray {
		if py != "" {
			workerID += py[:1]
		}
	}

	for i := 0; i < 4; i++ {
		workerID += string(digits[rand.Intn(len(digits))])
	}

	return workerID
}

var (
	companies       = []string{"华南物流", "顺达仓储", "远航配送"}
	employmentTypes = []string{"正式", "派遣", "兼职"}
	agencies        = []string{"", "人力资源一部", "人力资源二部"}
	skills          = []string{"叉车", "拣货", "打包", "质检", "盘点", "收货"}
	panelColors     = []string{"#e57373", "#64b5f6", "#81c784", "#ffb74d", "#ba68c8"}
)

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集
func GenerateRandomSubset(arr []string) []string {
	arrCopy := append([]string{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}

// GenerateRandomWorker 生成一个随机人员，返回的 patch 包含所有字段
func GenerateRandomWorker() (string, *domain.WorkerPatch) {
	name := GenerateRandomChineseName()
	workerID := GenerateWorkerIDFromChineseName(name)

	company := companies[rand.Intn(len(companies))]
	employmentType := employmentTypes[rand.Intn(len(employmentTypes))]
	agency := agencies[rand.Intn(len(agencies))]

	startHour := rand.Intn(4) + 7 // 07:00~10:00
	start := fmt.Sprintf("%02d:00", startHour)
	end := fmt.Sprintf("%02d:00", startHour+8+rand.Intn(2))
	active := true

	return workerID, &domain.WorkerPatch{
		Name:             &name,
		Company:          &company,
		EmploymentType:   &employmentType,
		Agency:           &agency,
		Skills:           GenerateRandomSubset(skills),
		DefaultStartTime: &start,
		DefaultEndTime:   &end,
		Active:           &active,
		Panel: &domain.WorkerPanel{
			Color:  panelColors[rand.Intn(len(panelColors))],
			Badges: make([]string, 0),
		},
	}
}

// GenerateRandomRoster 从 workerIDs 中随机选取至少一人组成名单
func GenerateRandomRoster(workerIDs []string) []string {
	if len(workerIDs) == 0 {
		return make([]string, 0)
	}
	return GenerateRandomSubset(workerIDs)
}
