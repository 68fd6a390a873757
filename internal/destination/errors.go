package destination

import "fmt"

// Stage 投递流水线阶段（错误归因用）
type Stage string

const (
	StageEncode  Stage = "encode"
	StageExtract Stage = "extract"
	StageDeliver Stage = "deliver"
)

// DeliveryError 投递错误，标明目的地与失败阶段
// 编码失败、参数提取失败、传输失败各自可区分，便于运维定位
type DeliveryError struct {
	DestinationID string
	Stage         Stage
	Err           error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("destination %s %s failed: %v", e.DestinationID, e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
