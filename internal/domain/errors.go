package domain

import "errors"

var (
	ErrNotFound = errors.New("no encontrado")

	// ErrNoMatchingVariation: la selección está completa pero ninguna
	// variación con stock la satisface. No se reintenta; el comprador debe
	// cambiar la selección.
	ErrNoMatchingVariation = errors.New("ninguna variación disponible para esa combinación")

	// ErrIncompleteSelection: se intentó resolver antes de alcanzar el
	// umbral de completitud. Violación de contrato del llamador.
	ErrIncompleteSelection = errors.New("selección incompleta")

	// ErrInvalidQuantity: cantidad <= 0 en el cálculo de precio.
	ErrInvalidQuantity = errors.New("cantidad inválida")

	// ErrDuplicateVariation: ya existe una variación del producto con la
	// misma combinación exacta de atributos.
	ErrDuplicateVariation = errors.New("ya existe una variación con esa combinación")

	ErrOutOfStock = errors.New("stock insuficiente")
)
