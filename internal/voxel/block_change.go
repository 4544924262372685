package voxel

import "github.com/annel0/voxel-core/internal/vec"

// BlockChange хранит состояние вокселя до и после изменения в рамках транзакции.
// Состояние "до" и координата фиксируются при создании; "после" меняется через Amend.
type BlockChange struct {
	before Block
	after  Block
	pos    vec.Vec3
}

// NewBlockChange создаёт запись об изменении блока в точке (x, y, z)
func NewBlockChange(before, after Block, x, y, z int) *BlockChange {
	return &BlockChange{
		before: before,
		after:  after,
		pos:    vec.Vec3{X: x, Y: y, Z: z},
	}
}

// Before возвращает состояние блока до транзакции
func (bc *BlockChange) Before() Block {
	return bc.before
}

// After возвращает текущее (последнее записанное) состояние блока
func (bc *BlockChange) After() Block {
	return bc.after
}

// Pos возвращает координату изменения
func (bc *BlockChange) Pos() vec.Vec3 {
	return bc.pos
}

// Amend заменяет состояние "после". Before и координата не меняются.
func (bc *BlockChange) Amend(newAfter Block) {
	bc.after = newAfter
}

// IsNoop возвращает true, если изменение ничего не меняет (before == after)
func (bc *BlockChange) IsNoop() bool {
	return bc.before == bc.after
}
