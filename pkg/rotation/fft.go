package rotation

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// fft2D performs a 2D Fast Fourier Transform of m. The result is stored in
// row-major order, rows x cols.
func fft2D(m mat.Matrix) []complex128 {
	rows, cols := m.Dims()
	data := make([]complex128, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = complex(m.At(i, j), 0)
		}
	}
	transform2D(data, rows, cols, false)
	return data
}

// ifft2D performs the unnormalized inverse of fft2D in place
func ifft2D(data []complex128, rows, cols int) {
	transform2D(data, rows, cols, true)
}

// transform2D runs a 1D complex FFT over every row and then over every column.
// Gonum's CmplxFFT handles any length, so no power-of-two padding is needed.
func transform2D(data []complex128, rows, cols int, inverse bool) {
	rowFFT := fourier.NewCmplxFFT(cols)
	rowIn := make([]complex128, cols)
	rowOut := make([]complex128, cols)
	for i := 0; i < rows; i++ {
		copy(rowIn, data[i*cols:(i+1)*cols])
		if inverse {
			rowFFT.Sequence(rowOut, rowIn)
		} else {
			rowFFT.Coefficients(rowOut, rowIn)
		}
		copy(data[i*cols:(i+1)*cols], rowOut)
	}

	colFFT := fourier.NewCmplxFFT(rows)
	colIn := make([]complex128, rows)
	colOut := make([]complex128, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			colIn[i] = data[i*cols+j]
		}
		if inverse {
			colFFT.Sequence(colOut, colIn)
		} else {
			colFFT.Coefficients(colOut, colIn)
		}
		for i := 0; i < rows; i++ {
			data[i*cols+j] = colOut[i]
		}
	}
}
