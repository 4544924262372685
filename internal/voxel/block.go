package voxel

// ColorIndex - индекс цвета в палитре формы
type ColorIndex uint8

// AirColorIndex - зарезервированный индекс, обозначающий пустой воксель (воздух)
const AirColorIndex ColorIndex = 255

// Block представляет состояние одного вокселя.
// Блок является значением: его можно свободно копировать и заменять.
type Block struct {
	Color ColorIndex
}

// NewBlock создаёт блок с указанным индексом цвета
func NewBlock(color ColorIndex) Block {
	return Block{Color: color}
}

// AirBlock возвращает пустой блок
func AirBlock() Block {
	return Block{Color: AirColorIndex}
}

// IsSolid возвращает true, если блок не является воздухом
func (b Block) IsSolid() bool {
	return b.Color != AirColorIndex
}

// IsAir возвращает true для пустого блока
func (b Block) IsAir() bool {
	return b.Color == AirColorIndex
}
