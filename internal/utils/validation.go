package utils

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const clockLayout = "15:04"

// ValidateClock 是 validator 的 clock 标签，要求字段为 HH:MM 格式
func ValidateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse(clockLayout, fl.Field().String())
	return err == nil
}

// ValidateWorkerDefaultTime 检查人员默认上下班时间，任一为空时不检查先后
func ValidateWorkerDefaultTime(start, end string) error {
	if start == "" || end == "" {
		return nil
	}

	startTime, err := time.Parse(clockLayout, start)
	if err != nil {
		return fmt.Errorf("默认上班时间格式错误")
	}
	endTime, err := time.Parse(clockLayout, end)
	if err != nil {
		return fmt.Errorf("默认下班时间格式错误")
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("默认下班时间必须晚于默认上班时间")
	}

	return nil
}
